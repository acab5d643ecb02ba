package support

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/canescan/cmd/canescan/cmd"
	"github.com/cucumber/godog"
)

// iRunCommand runs a canescan command line in-process.
func (testCtx *TestContext) iRunCommand(command string) error {
	command = strings.ReplaceAll(command, "{tmp}", testCtx.TempDir)
	testCtx.LastCommand = command

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return errors.New("empty command")
	}
	if parts[0] == "canescan" {
		parts = parts[1:]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var stdout, stderr bytes.Buffer
	root := cmd.NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(parts)
	testCtx.LastError = root.ExecuteContext(ctx)
	testCtx.LastOutput = stdout.String()
	testCtx.LastStderr = stderr.String()
	return nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastError != nil {
		return fmt.Errorf("command %q failed: %w\nOutput: %s\nStderr: %s",
			testCtx.LastCommand, testCtx.LastError, testCtx.LastOutput, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastError == nil {
		return fmt.Errorf("command %q succeeded when it should have failed\nOutput: %s",
			testCtx.LastCommand, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	if !strings.Contains(testCtx.LastOutput, expectedText) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(text string) error {
	if strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output unexpectedly contains '%s'\nActual output: %s", text, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) stderrShouldContain(expectedText string) error {
	if !strings.Contains(testCtx.LastStderr, expectedText) {
		return fmt.Errorf("stderr does not contain '%s'\nActual stderr: %s", expectedText, testCtx.LastStderr)
	}
	return nil
}

func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if testCtx.LastError == nil {
		return errors.New("expected an error, but the command succeeded")
	}
	if !strings.Contains(strings.ToLower(testCtx.LastError.Error()), strings.ToLower(errorText)) {
		return fmt.Errorf("error does not mention '%s': %v", errorText, testCtx.LastError)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	_, err := decodeJSON(testCtx.LastOutput)
	return err
}

// theJSONFieldShouldBe compares a dotted path in the command output.
func (testCtx *TestContext) theJSONFieldShouldBe(field, expected string) error {
	return jsonFieldEquals(testCtx.LastOutput, field, expected)
}

func (testCtx *TestContext) theJSONShouldContain(field string) error {
	v, err := decodeJSON(testCtx.LastOutput)
	if err != nil {
		return err
	}
	_, err = lookupField(v, field)
	return err
}

func (testCtx *TestContext) theFileShouldExist(filename string) error {
	if _, err := os.Stat(testCtx.Path(filename)); err != nil {
		return fmt.Errorf("expected file %s: %w", filename, err)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldContain(filename, expected string) error {
	data, err := os.ReadFile(testCtx.Path(filename))
	if err != nil {
		return err
	}
	if !strings.Contains(string(data), expected) {
		return fmt.Errorf("file %s does not contain '%s'\nContent: %s", filename, expected, data)
	}
	return nil
}

func (testCtx *TestContext) directoryShouldContainFiles(dir string, n int, pattern string) error {
	matches, err := filepath.Glob(filepath.Join(testCtx.Path(dir), pattern))
	if err != nil {
		return err
	}
	if len(matches) != n {
		return fmt.Errorf("expected %d files matching %s in %s, found %d", n, pattern, dir, len(matches))
	}
	return nil
}

func (testCtx *TestContext) aConfigFileWith(name string, body *godog.DocString) error {
	return os.WriteFile(testCtx.Path(name), []byte(body.Content), 0o600)
}

func (testCtx *TestContext) theEnvironmentVariableIsSetTo(name, value string) error {
	testCtx.SetEnv(name, value)
	return nil
}

func decodeJSON(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &v); err != nil {
		return nil, fmt.Errorf("output is not valid JSON: %w\nOutput: %s", err, s)
	}
	return v, nil
}

// lookupField walks a dotted path such as "result.pest_id" or "images.0.file".
func lookupField(v any, path string) (any, error) {
	cur := v
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field %q not found in JSON", path)
			}
			cur = next
		case []any:
			var i int
			if _, err := fmt.Sscanf(part, "%d", &i); err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("invalid index %q in %q", part, path)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("field %q not found in JSON", path)
		}
	}
	return cur, nil
}

func jsonFieldEquals(doc, field, expected string) error {
	v, err := decodeJSON(doc)
	if err != nil {
		return err
	}
	got, err := lookupField(v, field)
	if err != nil {
		return err
	}
	if s := fmt.Sprint(got); s != expected {
		return fmt.Errorf("expected %s to be %q, got %q", field, expected, s)
	}
	return nil
}

// RegisterCommonSteps registers command, output and file steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^stderr should contain "([^"]*)"$`, testCtx.stderrShouldContain)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON should contain "([^"]*)"$`, testCtx.theJSONShouldContain)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
	sc.Step(`^the directory "([^"]*)" should contain (\d+) files? matching "([^"]*)"$`, testCtx.directoryShouldContainFiles)
	sc.Step(`^a config file "([^"]*)" with:$`, testCtx.aConfigFileWith)
	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, testCtx.theEnvironmentVariableIsSetTo)
}
