package cli

import (
	"io"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temirov/mold/internal/template"
)

func TestRegisterBooleanFlagParsesValues(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		defaultValue bool
		arguments    []string
		expected     bool
		expectError  bool
	}{
		{
			name:         "defaults_to_false",
			defaultValue: false,
			arguments:    []string{},
			expected:     false,
			expectError:  false,
		},
		{
			name:         "sets_true_without_value",
			defaultValue: false,
			arguments:    []string{"--copy"},
			expected:     true,
			expectError:  false,
		},
		{
			name:         "sets_false_with_equals",
			defaultValue: true,
			arguments:    []string{"--copy=false"},
			expected:     false,
			expectError:  false,
		},
		{
			name:         "sets_false_with_no_literal",
			defaultValue: true,
			arguments:    []string{"--copy", "no"},
			expected:     false,
			expectError:  false,
		},
		{
			name:         "sets_true_with_on_literal",
			defaultValue: false,
			arguments:    []string{"--copy", "on"},
			expected:     true,
			expectError:  false,
		},
		{
			name:         "ignores_non_boolean_trailing_value",
			defaultValue: false,
			arguments:    []string{"--copy", "maybe"},
			expected:     true,
			expectError:  false,
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			command := &cobra.Command{Use: "tree"}
			flagSet := command.Flags()
			flagValue := !testCase.defaultValue
			registerBooleanFlag(flagSet, &flagValue, "copy", testCase.defaultValue, "copy the listing")
			normalizedArguments := normalizeBooleanFlagArguments(command, testCase.arguments)
			parseErr := command.ParseFlags(normalizedArguments)
			if testCase.expectError {
				if parseErr == nil {
					t.Fatalf("expected parse error for arguments %v", testCase.arguments)
				}
				return
			}
			if parseErr != nil {
				t.Fatalf("unexpected parse error: %v", parseErr)
			}
			if len(testCase.arguments) == 0 && flagValue != testCase.defaultValue {
				t.Fatalf("expected default %t, got %t", testCase.defaultValue, flagValue)
			}
			if flagValue != testCase.expected {
				t.Fatalf("expected %t, got %t", testCase.expected, flagValue)
			}
		})
	}
}

func TestVariablesFlagCollectsPairs(t *testing.T) {
	var variables template.Variables
	flagSet := pflag.NewFlagSet("variables", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	registerVariablesFlag(flagSet, &variables, "var", "template variable")

	require.NoError(t, flagSet.Parse([]string{"--var", "name=demo", "--var=url=https://example.com?a=b", "--var", "empty="}))
	assert.Equal(t, template.Variables{"name": "demo", "url": "https://example.com?a=b", "empty": ""}, variables)
	assert.Equal(t, "[empty=,name=demo,url=https://example.com?a=b]", flagSet.Lookup("var").Value.String())
}

func TestVariablesFlagRejectsMalformedPairs(t *testing.T) {
	testCases := []struct {
		name      string
		arguments []string
	}{
		{name: "missing_separator", arguments: []string{"--var", "name"}},
		{name: "empty_key", arguments: []string{"--var", " =value"}},
		{name: "duplicate_key", arguments: []string{"--var", "a=1", "--var", "a=2"}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			var variables template.Variables
			flagSet := pflag.NewFlagSet("variables", pflag.ContinueOnError)
			flagSet.SetOutput(io.Discard)
			registerVariablesFlag(flagSet, &variables, "var", "template variable")
			assert.Error(t, flagSet.Parse(testCase.arguments))
		})
	}
}
