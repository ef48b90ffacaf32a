package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// logPattern is the .gitignore entry covering arbor's debug logs.
const logPattern = DirName + "/*.log"

// EnsureLogsIgnored makes sure the project's .gitignore keeps arbor's
// debug logs (.arbor/*.log) out of git while leaving config.yaml tracked.
//
// It creates .gitignore if needed, appends the pattern only when no
// existing line already covers it, and is safe to call repeatedly.
func EnsureLogsIgnored(projectDir string) error {
	if projectDir == "" {
		var err error
		projectDir, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	gitignorePath := filepath.Join(projectDir, ".gitignore")

	covered, err := logsCovered(gitignorePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if covered {
		return nil
	}
	return appendToGitignore(gitignorePath, logPattern)
}

// logsCovered reports whether a line of the .gitignore at path already
// ignores the logs.
func logsCovered(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if coversLogs(line) {
			return true, nil
		}
	}
	return false, scanner.Err()
}

// coversLogs checks if a gitignore line covers .arbor/*.log.
func coversLogs(line string) bool {
	normalized := strings.TrimPrefix(line, "/")
	switch normalized {
	case DirName, DirName + "/", DirName + "/*", DirName + "/**", DirName + "/**/*",
		logPattern, DirName + "/**/*.log", "*.log":
		return true
	}
	return false
}

// appendToGitignore appends a pattern, creating the file if it doesn't
// exist and keeping a newline between old content and the new entry.
func appendToGitignore(path string, pattern string) error {
	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	var toWrite string
	if len(content) == 0 {
		toWrite = "# arbor debug logs\n" + pattern + "\n"
	} else {
		if content[len(content)-1] != '\n' {
			toWrite = "\n"
		}
		toWrite += "\n# arbor debug logs\n" + pattern + "\n"
	}

	_, err = file.WriteString(toWrite)
	return err
}
