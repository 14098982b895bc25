// Package security validates candidate-image URLs before download and user
// supplied save paths before writing.
package security

import (
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"
)

var (
	ErrPrivateIP     = fmt.Errorf("URL resolves to private IP address")
	ErrInvalidScheme = fmt.Errorf("only HTTPS URLs are allowed")
	ErrPathTraversal = fmt.Errorf("path traversal detected")
	ErrAbsolutePath  = fmt.Errorf("absolute paths are not allowed")

	skipValidation = false
)

// SetSkipValidation disables URL checks; tests downloading from local
// httptest servers need it.
func SetSkipValidation(skip bool) {
	skipValidation = skip
}

// ValidateImageURL rejects non-HTTPS URLs and hosts that resolve to private
// address space, so a hostile image_url cannot probe the local network.
func ValidateImageURL(rawURL string) error {
	if skipValidation {
		return nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "https" {
		return ErrInvalidScheme
	}

	return validateHostIP(parsed.Hostname())
}

func validateHostIP(host string) error {
	if ip := net.ParseIP(host); ip != nil {
		if isPrivateIP(ip) {
			return ErrPrivateIP
		}
		return nil
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		return nil
	}

	for _, ip := range ips {
		if isPrivateIP(ip) {
			return ErrPrivateIP
		}
	}

	return nil
}

func isPrivateIP(ip net.IP) bool {
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsPrivate() || ip.IsUnspecified() {
		return true
	}

	if ip4 := ip.To4(); ip4 != nil {
		switch {
		case ip4[0] == 0: // 0.0.0.0/8
			return true
		case ip4[0] == 100 && ip4[1] >= 64 && ip4[1] <= 127: // 100.64.0.0/10 (CGNAT)
			return true
		case ip4[0] == 192 && ip4[1] == 0 && ip4[2] <= 2: // 192.0.0.0/24, 192.0.2.0/24
			return true
		case ip4[0] == 198 && ip4[1] == 51 && ip4[2] == 100: // TEST-NET-2
			return true
		case ip4[0] == 203 && ip4[1] == 0 && ip4[2] == 113: // TEST-NET-3
			return true
		case ip4[0] >= 224: // multicast and reserved
			return true
		}
	}

	return false
}

// ValidateSavePath rejects save targets that escape the working directory.
func ValidateSavePath(path string) error {
	if filepath.IsAbs(path) {
		return ErrAbsolutePath
	}

	cleaned := filepath.Clean(path)
	if strings.HasPrefix(cleaned, "..") || strings.Contains(path, "..") {
		return ErrPathTraversal
	}

	if strings.HasPrefix(filepath.Base(cleaned), "-") {
		return fmt.Errorf("filename cannot start with hyphen")
	}

	return nil
}
