package compose

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ServiceImage returns the image reference of the named service in a compose
// document.
func ServiceImage(document, service string) (string, error) {
	var doc struct {
		Services map[string]struct {
			Image string `yaml:"image"`
		} `yaml:"services"`
	}
	if err := yaml.Unmarshal([]byte(document), &doc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrTemplateMalformed, err)
	}
	svc, ok := doc.Services[service]
	if !ok || svc.Image == "" {
		return "", fmt.Errorf("%w: no image for service %q", ErrTemplateMalformed, service)
	}
	return svc.Image, nil
}
