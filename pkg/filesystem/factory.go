package filesystem

import (
	"fmt"
)

// Target is a FileSystem bound to the directory it was opened for.
type Target struct {
	FS   FileSystem
	Root string

	closer func()
}

// Close releases any remote connection held by the target. Safe to call on local targets.
func (t *Target) Close() {
	if t.closer != nil {
		t.closer()
	}
}

// LocalTarget returns a target for a local directory.
func LocalTarget(dir string) *Target {
	return &Target{FS: NewRealFileSystem(), Root: dir}
}

// OpenTarget creates a Target for a configured directory, dialing SFTP for sftp:// URLs.
func OpenTarget(location string) (*Target, error) {
	parsed, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}

	if !parsed.IsRemote {
		return LocalTarget(parsed.LocalPath), nil
	}

	conn, err := Connect(parsed.Host, parsed.Port, parsed.User)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s@%s:%d: %w",
			parsed.User, parsed.Host, parsed.Port, err)
	}

	sftpFS := NewSFTPFileSystem(conn.Client(), conn)

	return &Target{
		FS:     sftpFS,
		Root:   parsed.Path,
		closer: func() { _ = sftpFS.Close() },
	}, nil
}
