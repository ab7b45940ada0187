package debug

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
)

// Tail connects to a debug server at addr and calls handle for every line received
// until the server hangs up or ctx is done. A nil error means the server closed the
// connection.
func Tail(ctx context.Context, addr string, handle func(line string) error) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("debug dial %s: %w", addr, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if err := handle(scanner.Text()); err != nil {
			return err
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// TailTo copies the line stream from addr to w.
func TailTo(ctx context.Context, addr string, w io.Writer) error {
	return Tail(ctx, addr, func(line string) error {
		_, err := fmt.Fprintln(w, line)
		return err
	})
}
