// Package compose renders the deployable docker-compose document from the
// shipped template and a populated environment store.
//
// The renderer is deliberately line-based: every line the template author
// wrote survives byte-identical unless it carries a recognized configuration
// key, so comments, ordering and indentation are preserved exactly. The
// supported template shape is a narrow subset of YAML: plain block-style
// mappings with two-space indentation steps, no flow styles, no anchors, and
// no multi-line scalars among the recognized keys. The whole template must
// still parse as YAML; this catches structural mistakes before the line walk
// applies its indentation heuristics.
package compose

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nq-deploy/deployctl/environment"
)

// substitutions maps recognized template keys to environment store fields.
// Every occurrence of a recognized key is substituted independently,
// wherever it appears; keys sharing a store field (the application secret
// key reused for several settings) are each rewritten at their own line.
var substitutions = map[string]string{
	"POSTGRES_USER":             environment.KeyDatabaseUser,
	"POSTGRES_PASSWORD":         environment.KeyDatabasePass,
	"DATABASE_USER":             environment.KeyDatabaseUser,
	"DATABASE_PASSWORD":         environment.KeyDatabasePass,
	"RABBITMQ_DEFAULT_USER":     environment.KeyBrokerUser,
	"RABBITMQ_DEFAULT_PASS":     environment.KeyBrokerPass,
	"CELERY_BROKER_URL":         environment.KeyBrokerURL,
	"SECRET_KEY":                environment.KeySecretKey,
	"ALLOWED_HOSTS":             environment.KeyAllowedHosts,
	"DEBUG":                     environment.KeyDebug,
	"DJANGO_SUPERUSER_USERNAME": environment.KeyAdminUsername,
	"DJANGO_SUPERUSER_PASSWORD": environment.KeyAdminPassword,
	"DJANGO_SUPERUSER_EMAIL":    environment.KeyAdminEmail,
	"S3_ACCESS_KEY":             environment.KeyS3AccessKey,
	"S3_SECRET_KEY":             environment.KeyS3SecretKey,
	"S3_ENDPOINT":               environment.KeyS3Endpoint,
	"MAX_UPLOAD_SIZE":           environment.KeyMaxUploadSize,
}

// insertedKeys are the derived keys injected into the target service's
// environment block when the template does not already carry them.
var insertedKeys = []string{
	environment.KeyS3AccessKey,
	environment.KeyS3SecretKey,
	environment.KeyS3Endpoint,
	environment.KeyMaxUploadSize,
}

// renderState names the position of the line walk relative to the target
// service, replacing the implicit boolean flags of earlier script versions.
type renderState int

const (
	stateOutside renderState = iota
	stateInService
	stateInEnvironment
)

var keyLine = regexp.MustCompile(`^(\s*)([A-Za-z0-9_.-]+):\s*(.*)$`)

// Templater renders deployment documents for one target service.
type Templater struct {
	targetService string
}

// NewTemplater creates a templater that injects derived keys into the named
// service's environment block.
func NewTemplater(targetService string) *Templater {
	return &Templater{targetService: targetService}
}

// Render substitutes recognized keys with values from env and inserts the
// derived object-storage keys into the target service's environment block.
// Unrecognized lines are copied byte-identical. The insertion happens at
// most once, just before the first line that ends the environment block, or
// at end-of-document when the block runs to the end. A target service
// without an environment block is a template error.
func (t *Templater) Render(template string, env *environment.Store) (string, error) {
	if err := validateYAML(template); err != nil {
		return "", err
	}
	if err := env.Validate(); err != nil {
		return "", err
	}

	var (
		out           []string
		state         = stateOutside
		serviceIndent = -1
		envIndent     = -1
		entryIndent   = -1
		inserted      = false
		serviceFound  = false
		seenInBlock   = map[string]bool{}
	)

	lines := strings.Split(template, "\n")
	// A trailing newline produces one empty trailing element; remember to
	// restore it on join.
	trailingNewline := strings.HasSuffix(template, "\n")
	if trailingNewline {
		lines = lines[:len(lines)-1]
	}

	flushInsert := func() []string {
		if inserted {
			return nil
		}
		inserted = true
		indent := strings.Repeat(" ", entryIndent)
		block := make([]string, 0, len(insertedKeys))
		for _, field := range insertedKeys {
			if seenInBlock[field] {
				continue
			}
			block = append(block, indent+field+": "+env.Get(field))
		}
		return block
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		indent := len(line) - len(strings.TrimLeft(line, " "))
		blank := trimmed == "" || strings.HasPrefix(trimmed, "#")

		// State transitions are driven by non-blank lines only; blank
		// lines and comments never end a block.
		if !blank {
			switch state {
			case stateOutside:
				if trimmed == t.targetService+":" {
					state = stateInService
					serviceIndent = indent
					serviceFound = true
				}
			case stateInService:
				if indent <= serviceIndent {
					state = stateOutside
				} else if trimmed == "environment:" {
					state = stateInEnvironment
					envIndent = indent
					entryIndent = indent + 2
				}
			case stateInEnvironment:
				if indent <= envIndent {
					// Dedent ends the environment block; the derived
					// keys go in just before this line.
					out = append(out, flushInsert()...)
					if indent <= serviceIndent {
						state = stateOutside
					} else {
						state = stateInService
					}
				} else {
					// First real entry fixes the block's indentation.
					entryIndent = indent
					if m := keyLine.FindStringSubmatch(line); m != nil {
						if field, ok := substitutions[m[2]]; ok {
							seenInBlock[field] = true
						}
					}
				}
			}
		}

		out = append(out, t.renderLine(line, env))
	}

	if state == stateInEnvironment {
		out = append(out, flushInsert()...)
	}

	if !serviceFound {
		return "", fmt.Errorf("%w: service %q not declared in template", ErrTemplateMalformed, t.targetService)
	}
	if !inserted {
		// Without an environment block the derived keys have nowhere to go
		// and the service would silently start unconfigured.
		return "", fmt.Errorf("%w: service %q has no environment block", ErrTemplateMalformed, t.targetService)
	}

	result := strings.Join(out, "\n")
	if trailingNewline {
		result += "\n"
	}
	if len(strings.TrimSpace(result)) == 0 {
		return "", ErrEmptyOutput
	}
	return result, nil
}

// renderLine substitutes a single recognized key line, preserving its
// leading whitespace exactly. Every other line is returned unchanged.
func (t *Templater) renderLine(line string, env *environment.Store) string {
	m := keyLine.FindStringSubmatch(line)
	if m == nil {
		return line
	}
	field, ok := substitutions[m[2]]
	if !ok {
		return line
	}
	return m[1] + m[2] + ": " + env.Get(field)
}

func validateYAML(template string) error {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(template), &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrTemplateMalformed, err)
	}
	return nil
}
