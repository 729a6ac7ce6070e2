// Command veloxc sends one request to a running veloxd server and prints
// its decoded response.
package main

import (
	"fmt"
	"net"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/xgzlucario/veloxd/internal/wire"
)

func main() {
	app := &cli.App{
		Name:      "veloxc",
		Usage:     "send one request to a veloxd server and print its response",
		ArgsUsage: "command [args...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Aliases: []string{"a"}, Value: "127.0.0.1:1234", EnvVars: []string{"VELOXD_ADDR"}},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	args := c.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("usage: veloxc [--addr host:port] command [args...]")
	}

	conn, err := net.Dial("tcp", c.String("addr"))
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := writeFull(conn, wire.EncodeRequest(args)); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	v, err := readResponse(conn)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	printValue(v, 0)
	if v.Tag == wire.TagErr {
		return fmt.Errorf("server returned %s: %s", v.Code, v.Str)
	}
	return nil
}

// writeFull loops until every byte of buf has been handed to the kernel
// or an error occurs; a single Write is not guaranteed to accept it all.
func writeFull(conn net.Conn, buf []byte) error {
	for len(buf) > 0 {
		n, err := conn.Write(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

// readFull is writeFull's mirror on the read side: it blocks until
// exactly len(buf) bytes have arrived, since a stream Read may return
// short.
func readFull(conn net.Conn, buf []byte) error {
	for len(buf) > 0 {
		n, err := conn.Read(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

func readResponse(conn net.Conn) (wire.Value, error) {
	var lenBuf [4]byte
	if err := readFull(conn, lenBuf[:]); err != nil {
		return wire.Value{}, err
	}
	l := uint32(lenBuf[0]) | uint32(lenBuf[1])<<8 | uint32(lenBuf[2])<<16 | uint32(lenBuf[3])<<24
	if l > wire.MaxLen {
		return wire.Value{}, fmt.Errorf("response frame too large: %d", l)
	}
	body := make([]byte, l)
	if err := readFull(conn, body); err != nil {
		return wire.Value{}, err
	}
	v, _, err := wire.DecodeValue(body)
	return v, err
}

func printValue(v wire.Value, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	switch v.Tag {
	case wire.TagNil:
		fmt.Println(indent + "(nil)")
	case wire.TagErr:
		fmt.Printf("%s(error) %s: %s\n", indent, v.Code, v.Str)
	case wire.TagStr:
		fmt.Printf("%s%q\n", indent, v.Str)
	case wire.TagInt:
		fmt.Printf("%s%d\n", indent, v.Int)
	case wire.TagDbl:
		fmt.Printf("%s%g\n", indent, v.Dbl)
	case wire.TagArr:
		fmt.Printf("%s[%d items]\n", indent, len(v.Arr))
		for _, item := range v.Arr {
			printValue(item, depth+1)
		}
	}
}
