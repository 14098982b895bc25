package security

import (
	"errors"
	"testing"
)

func TestValidateImageURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{"http scheme", "http://cdn.example.com/img.png", ErrInvalidScheme},
		{"file scheme", "file:///etc/passwd", ErrInvalidScheme},
		{"loopback IP", "https://127.0.0.1/img.png", ErrPrivateIP},
		{"private IP", "https://10.0.0.5/img.png", ErrPrivateIP},
		{"link local", "https://169.254.169.254/latest/meta-data", ErrPrivateIP},
		{"CGNAT range", "https://100.64.1.1/img.png", ErrPrivateIP},
		{"unspecified", "https://0.0.0.0/img.png", ErrPrivateIP},
		{"multicast", "https://224.0.0.1/img.png", ErrPrivateIP},
		{"public IP", "https://8.8.8.8/img.png", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateImageURL(tt.url)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateImageURL(%s) error = %v, want nil", tt.url, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateImageURL(%s) error = %v, want %v", tt.url, err, tt.wantErr)
			}
		})
	}
}

func TestValidateImageURL_Skip(t *testing.T) {
	SetSkipValidation(true)
	defer SetSkipValidation(false)

	if err := ValidateImageURL("http://127.0.0.1/img.png"); err != nil {
		t.Errorf("ValidateImageURL() error = %v with validation skipped, want nil", err)
	}
}

func TestValidateSavePath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"simple filename", "candidate-12.png", nil},
		{"subdirectory", "images/candidate.png", nil},
		{"absolute path", "/etc/cron.d/evil", ErrAbsolutePath},
		{"traversal", "../../etc/passwd", ErrPathTraversal},
		{"embedded traversal", "images/../../secret.png", ErrPathTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSavePath(tt.path)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateSavePath(%s) error = %v, want nil", tt.path, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateSavePath(%s) error = %v, want %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidateSavePath_HyphenPrefix(t *testing.T) {
	if err := ValidateSavePath("-rf.png"); err == nil {
		t.Error("ValidateSavePath() error = nil for hyphen-prefixed name, want error")
	}
}
