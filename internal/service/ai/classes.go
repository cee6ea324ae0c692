package ai

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadClasses reads a newline-delimited class-name file. Line N names class index N,
// so interior blank lines are kept; a trailing newline does not add a class.
func LoadClasses(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open class list: %w", err)
	}
	defer f.Close()

	classes := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		classes = append(classes, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read class list: %w", err)
	}
	return classes, nil
}
