package filesystem

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Exported constants.
const (
	DefaultSFTPPort = 22
	SFTPScheme      = "sftp"
)

// Exported variables.
var (
	ErrInvalidLocation = errors.New("invalid location")
)

// Location is either a local directory or a directory on a remote host reached over SFTP.
type Location struct {
	IsRemote bool

	// LocalPath is set for local directories
	LocalPath string

	// Remote fields
	Host string
	Port int
	User string
	Path string
}

// String renders the location in the form it was configured.
func (l *Location) String() string {
	if !l.IsRemote {
		return l.LocalPath
	}

	return fmt.Sprintf("sftp://%s@%s:%d/%s", l.User, l.Host, l.Port, l.Path)
}

// ParseLocation parses a configured directory, detecting whether it's a local path or SFTP URL.
// SFTP URLs have the format: sftp://user@host:port/path/to/dir
// Port is optional (defaults to 22)
// Examples:
//   - sftp://deck@steamdeck.local/.steam/steam/steamapps/common/Brickadia/Paks
//   - sftp://admin@server:2222//srv/brickadia/Paks (absolute remote path)
//   - /home/me/Games/Brickadia/Paks (local path)
func ParseLocation(location string) (*Location, error) {
	if strings.HasPrefix(location, SFTPScheme+"://") {
		return parseSFTPURL(location)
	}

	return &Location{LocalPath: location}, nil
}

// parseSFTPURL parses an SFTP URL into its components.
//
//nolint:cyclop // Complexity from SFTP URL validation (scheme, user, host, port, path)
func parseSFTPURL(sftpURL string) (*Location, error) {
	u, err := url.Parse(sftpURL) //nolint:varnamelen // u is idiomatic for URL
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLocation, err)
	}

	if u.Scheme != SFTPScheme {
		return nil, fmt.Errorf("%w: expected sftp:// scheme, got %s://", ErrInvalidLocation, u.Scheme)
	}

	if u.User == nil || u.User.Username() == "" {
		return nil, fmt.Errorf("%w: SFTP URL must include username (sftp://user@host/path)", ErrInvalidLocation)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: SFTP URL must include host", ErrInvalidLocation)
	}

	port := DefaultSFTPPort
	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid port number: %w", ErrInvalidLocation, err)
		}
		port = p
	}

	// sftp://user@host/path  → relative to home directory
	// sftp://user@host//path → absolute path /path
	// sftp://user@host       → home directory
	remotePath := u.Path
	switch {
	case remotePath == "" || remotePath == "/":
		remotePath = "."
	case strings.HasPrefix(remotePath, "//"):
		remotePath = remotePath[1:]
	default:
		remotePath = strings.TrimPrefix(remotePath, "/")
	}

	return &Location{
		IsRemote: true,
		Host:     host,
		Port:     port,
		User:     u.User.Username(),
		Path:     remotePath,
	}, nil
}
