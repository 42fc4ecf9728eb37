package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dutchcoders/go-clamd"
)

// ErrMaliciousContent is returned when a scanner flags published HTML.
var ErrMaliciousContent = errors.New("malicious content detected")

// ContentScanner inspects HTML before it becomes publicly visible.
type ContentScanner interface {
	Scan(ctx context.Context, html string) error
}

// ClamdScanner streams content to a clamd daemon.
type ClamdScanner struct {
	addr string
}

// NewClamdScanner 使用 clamd 地址（如 tcp://clamav:3310）构造扫描器。
func NewClamdScanner(addr string) *ClamdScanner {
	return &ClamdScanner{addr: addr}
}

func (s *ClamdScanner) Scan(ctx context.Context, html string) error {
	client := clamd.NewClamd(s.addr)

	abortChan := make(chan bool)
	defer close(abortChan)

	scanChan, err := client.ScanStream(strings.NewReader(html), abortChan)
	if err != nil {
		return fmt.Errorf("scan content: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case result, ok := <-scanChan:
			if !ok {
				return nil
			}
			switch result.Status {
			case clamd.RES_OK:
			case clamd.RES_FOUND:
				return fmt.Errorf("%w: %s", ErrMaliciousContent, result.Description)
			default:
				return fmt.Errorf("scan content: %s", result.Description)
			}
		}
	}
}
