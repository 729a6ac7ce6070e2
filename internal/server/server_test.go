package server

import (
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/xgzlucario/veloxd/internal/store"
	"github.com/xgzlucario/veloxd/internal/wire"
)

func startTestServer(t *testing.T, port int) *store.DB {
	t.Helper()
	db := store.NewDB()
	srv, err := New(Config{Port: port}, db, zerolog.Nop())
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	go srv.Run()
	t.Cleanup(func() {
		srv.Stop()
		srv.Close()
	})
	time.Sleep(50 * time.Millisecond)
	return db
}

func readValues(t *testing.T, conn net.Conn, n int) []wire.Value {
	t.Helper()
	var buf []byte
	var scratch [4096]byte
	var out []wire.Value

	for len(out) < n {
		rn, err := conn.Read(scratch[:])
		if !assert.NoError(t, err) {
			t.FailNow()
		}
		buf = append(buf, scratch[:rn]...)

		for len(buf) >= 4 {
			frameLen := int(buf[0]) | int(buf[1])<<8 | int(buf[2])<<16 | int(buf[3])<<24
			if len(buf) < 4+frameLen {
				break
			}
			v, _, err := wire.DecodeValue(buf[4 : 4+frameLen])
			if !assert.NoError(t, err) {
				t.FailNow()
			}
			out = append(out, v)
			buf = buf[4+frameLen:]
		}
	}
	return out
}

func TestPipelinedRequestsReturnResponsesInOrder(t *testing.T) {
	ast := assert.New(t)
	startTestServer(t, 20311)

	conn, err := net.Dial("tcp", "127.0.0.1:20311")
	if !ast.NoError(err) {
		return
	}
	defer conn.Close()

	var payload []byte
	payload = append(payload, wire.EncodeRequest([]string{"set", "a", "1"})...)
	payload = append(payload, wire.EncodeRequest([]string{"set", "b", "2"})...)
	payload = append(payload, wire.EncodeRequest([]string{"set", "c", "3"})...)

	_, err = conn.Write(payload)
	ast.NoError(err)

	vals := readValues(t, conn, 3)
	ast.Len(vals, 3)
	for _, v := range vals {
		ast.Equal(wire.TagNil, v.Tag) // each set is an insert, not overwrite
	}
}

func TestGetAfterSetOverNetwork(t *testing.T) {
	ast := assert.New(t)
	startTestServer(t, 20312)

	conn, err := net.Dial("tcp", "127.0.0.1:20312")
	if !ast.NoError(err) {
		return
	}
	defer conn.Close()

	_, err = conn.Write(wire.EncodeRequest([]string{"set", "foo", "bar"}))
	ast.NoError(err)
	readValues(t, conn, 1)

	_, err = conn.Write(wire.EncodeRequest([]string{"get", "foo"}))
	ast.NoError(err)
	vals := readValues(t, conn, 1)
	ast.Equal(wire.TagStr, vals[0].Tag)
	ast.Equal("bar", vals[0].Str)
}
