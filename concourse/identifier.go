package concourse

import (
	"fmt"
	"regexp"
)

// Identifier names a pipeline, resource, resource type, job or task. The
// value ends up in fly CLI arguments and web URLs, so the permitted charset
// is deliberately narrow: lowercase alphanumerics plus dash, dot and
// underscore, starting with a letter or digit.
type Identifier string

var identifierPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)

// InvalidIdentifierError reports an identifier that would be rejected by the
// Concourse API.
type InvalidIdentifierError struct {
	Value string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid concourse identifier %q", e.Value)
}

// NewIdentifier validates value and returns it as an Identifier.
func NewIdentifier(value string) (Identifier, error) {
	id := Identifier(value)
	if err := id.Validate(); err != nil {
		return "", err
	}
	return id, nil
}

// Validate checks the identifier against the permitted charset.
func (i Identifier) Validate() error {
	if !identifierPattern.MatchString(string(i)) {
		return &InvalidIdentifierError{Value: string(i)}
	}
	return nil
}

func (i Identifier) String() string { return string(i) }
