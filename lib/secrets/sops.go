// Package secrets decrypts sops-encrypted YAML documents at deploy time.
// Decryption itself happens in the external sops binary; this package only
// invokes it and decodes the plaintext.
package secrets

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"gopkg.in/yaml.v3"
)

// DecodeError reports a decrypted document that is not a YAML mapping.
type DecodeError struct {
	Path   string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("secrets %s: %s", e.Path, e.Reason)
}

// Decrypter shells out to sops.
type Decrypter struct {
	// Binary is the sops executable; empty means "sops" on PATH.
	Binary string
}

// Decrypt runs sops -d on the document at path and returns the decoded
// top-level mapping. Secrets files here are always string-keyed mappings;
// anything else is a DecodeError.
func (d Decrypter) Decrypt(ctx context.Context, path string) (map[string]any, error) {
	binary := d.Binary
	if binary == "" {
		binary = "sops"
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, "-d", path)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("sops -d %s: %w: %s", path, err, bytes.TrimSpace(stderr.Bytes()))
	}

	return Decode(path, stdout.Bytes())
}

// Decode parses decrypted YAML and enforces the mapping shape. Split out of
// Decrypt so the parsing rules are testable without a sops binary.
func Decode(path string, plaintext []byte) (map[string]any, error) {
	var doc any
	if err := yaml.Unmarshal(plaintext, &doc); err != nil {
		return nil, &DecodeError{Path: path, Reason: err.Error()}
	}
	mapping, ok := doc.(map[string]any)
	if !ok {
		return nil, &DecodeError{Path: path, Reason: fmt.Sprintf("document is %T, expected a mapping", doc)}
	}
	return mapping, nil
}

// String extracts a string value at a dotted key path, e.g.
// "database.password".
func String(doc map[string]any, dotted string) (string, error) {
	value, err := lookup(doc, dotted)
	if err != nil {
		return "", err
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("secret %q is %T, expected string", dotted, value)
	}
	return s, nil
}

func lookup(doc map[string]any, dotted string) (any, error) {
	current := any(doc)
	key := dotted
	for key != "" {
		head := key
		rest := ""
		for i := 0; i < len(key); i++ {
			if key[i] == '.' {
				head, rest = key[:i], key[i+1:]
				break
			}
		}
		mapping, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("secret %q: %q is not a mapping", dotted, head)
		}
		next, ok := mapping[head]
		if !ok {
			return nil, fmt.Errorf("secret %q: key %q not found", dotted, head)
		}
		current = next
		key = rest
	}
	return current, nil
}
