// Package fetch implements the fetch(url, path) primitive: streaming the
// bytes named by a URL to a local file. It understands http, https, file,
// and ftp schemes, the four PFN schemes the cache and client ever encounter.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
)

// ErrUnsupportedScheme is returned when a PFN uses a scheme fetch does not
// understand.
var ErrUnsupportedScheme = errors.New("fetch: unsupported URL scheme")

// ErrNotFound is returned when the remote source reports the object does
// not exist (HTTP 404, missing local file, missing FTP path).
var ErrNotFound = errors.New("fetch: source not found")

// DefaultBlockSize is the default stream buffer, matching MULE_BLOCK_SIZE's
// documented default.
const DefaultBlockSize = 64 * 1024

// Fetch streams the bytes named by rawURL into a writer, in blockSize
// chunks. blockSize <= 0 uses DefaultBlockSize.
func Fetch(ctx context.Context, rawURL string, dst io.Writer, blockSize int) error {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("fetch: error parsing url %q: %w", rawURL, err)
	}

	src, err := open(ctx, u)
	if err != nil {
		return err
	}
	defer src.Close()

	buf := make([]byte, blockSize)
	if _, err := io.CopyBuffer(dst, src, buf); err != nil {
		return fmt.Errorf("fetch: error streaming %q: %w", rawURL, err)
	}

	return nil
}

func open(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	switch u.Scheme {
	case "http", "https":
		return openHTTP(ctx, u)
	case "file":
		return openFile(u)
	case "ftp":
		return openFTP(u)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
}

func openHTTP(ctx context.Context, u *url.URL) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: error building request for %q: %w", u, err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: error fetching %q: %w", u, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()

		return nil, fmt.Errorf("%w: %s", ErrNotFound, u)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()

		return nil, fmt.Errorf("fetch: unexpected status %d fetching %q", resp.StatusCode, u)
	}

	return resp.Body, nil
}

func openFile(u *url.URL) (io.ReadCloser, error) {
	f, err := os.Open(u.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, u.Path)
		}

		return nil, fmt.Errorf("fetch: error opening %q: %w", u.Path, err)
	}

	return f, nil
}

func openFTP(u *url.URL) (io.ReadCloser, error) {
	host := u.Host
	if u.Port() == "" {
		host += ":21"
	}

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(30*time.Second))
	if err != nil {
		return nil, fmt.Errorf("fetch: error dialing ftp %q: %w", host, err)
	}

	if u.User != nil {
		pass, _ := u.User.Password()
		if err := conn.Login(u.User.Username(), pass); err != nil {
			conn.Quit()

			return nil, fmt.Errorf("fetch: error authenticating to ftp %q: %w", host, err)
		}
	} else {
		if err := conn.Login("anonymous", "anonymous"); err != nil {
			conn.Quit()

			return nil, fmt.Errorf("fetch: error authenticating to ftp %q: %w", host, err)
		}
	}

	r, err := conn.Retr(u.Path)
	if err != nil {
		conn.Quit()

		return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, u.Path, err)
	}

	return &ftpReadCloser{resp: r, conn: conn}, nil
}

// ftpReadCloser closes both the retrieve response and the control
// connection once the caller is done reading.
type ftpReadCloser struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (f *ftpReadCloser) Read(p []byte) (int, error) { return f.resp.Read(p) }

func (f *ftpReadCloser) Close() error {
	err := f.resp.Close()
	f.conn.Quit()

	return err
}
