package detector

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// UnknownClass is the label used for class ids outside the loaded list.
const UnknownClass = "unknown"

// LoadClasses reads one class name per line, skipping blank lines.
func LoadClasses(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open class names: %w", err)
	}
	defer f.Close()

	var classes []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		classes = append(classes, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read class names: %w", err)
	}

	if len(classes) == 0 {
		return nil, fmt.Errorf("no class names in %s", path)
	}
	return classes, nil
}

// ClassName returns the name for id, or UnknownClass when out of range.
func ClassName(classes []string, id int) string {
	if id < 0 || id >= len(classes) {
		return UnknownClass
	}
	return classes[id]
}
