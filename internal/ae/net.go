package ae

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// TcpServer opens a nonblocking IPv4 TCP listener bound to 0.0.0.0:port
// with the given backlog. Callers pass unix.SOMAXCONN when the caller's
// configured backlog is unset.
func TcpServer(port, backlog int) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return -1, err
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: port}); err != nil {
		unix.Close(fd)
		return -1, err
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return -1, err
	}
	return fd, nil
}

// Accept accepts one connection and sets it nonblocking.
func Accept(fd int) (int, error) {
	nfd, _, err := unix.Accept(fd)
	if err != nil {
		return -1, err
	}
	if err := unix.SetNonblock(nfd, true); err != nil {
		unix.Close(nfd)
		return -1, err
	}
	return nfd, nil
}

func Read(fd int, buf []byte) (int, error)  { return unix.Read(fd, buf) }
func Write(fd int, buf []byte) (int, error) { return unix.Write(fd, buf) }
func Close(fd int) error                    { return unix.Close(fd) }

// PeerAddr formats fd's remote endpoint as "ip:port", for connection
// logging. Returns "" if the peer address can't be determined (fd
// already closed, or not a TCP socket).
func PeerAddr(fd int) string {
	sa, err := unix.Getpeername(fd)
	if err != nil {
		return ""
	}
	v4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return ""
	}
	ip := v4.Addr
	return fmt.Sprintf("%d.%d.%d.%d:%d", ip[0], ip[1], ip[2], ip[3], v4.Port)
}
