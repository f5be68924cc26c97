// Package systemd implements the sd_notify readiness protocol for running
// follow mode as a service.
package systemd

import (
	"errors"
	"net"
	"os"
)

func NotifyReady() error {
	return Notify("READY=1")
}

// Notify sends one sd_notify message. Outside of systemd (NOTIFY_SOCKET
// unset) it is a no-op.
func Notify(message string) error {
	if len(message) == 0 {
		return errors.New("requires a message")
	}
	name := os.Getenv("NOTIFY_SOCKET")
	if name == "" {
		return nil
	}
	if name[0] != '@' && name[0] != '/' {
		return errors.New("unsupported socket type")
	}
	if name[0] == '@' {
		name = "\x00" + name[1:]
	}

	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Name: name, Net: "unixgram"})
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Write([]byte(message))
	return err
}
