package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/temirov/mold/internal/template"
)

const (
	booleanFlagTypeName               = "bool"
	booleanFlagTrueLiteral            = "true"
	booleanFlagAcceptedValuesListing  = "true, false, yes, no, on, off, 1, 0"
	booleanFlagInvalidValueErrorLabel = "invalid boolean value"

	variableFlagTypeName       = "key=value"
	variableSeparator          = "="
	errorVariableFormat        = "invalid variable %q: expected key=value"
	errorVariableEmptyKey      = "invalid variable %q: empty key"
	errorVariableDuplicatedKey = "variable %q set more than once"
)

var booleanFlagLiterals = map[string]bool{
	"true":  true,
	"t":     true,
	"1":     true,
	"yes":   true,
	"y":     true,
	"on":    true,
	"false": false,
	"f":     false,
	"0":     false,
	"no":    false,
	"n":     false,
	"off":   false,
}

// booleanFlagValue accepts the literals in booleanFlagLiterals and an empty value as true.
type booleanFlagValue struct {
	target  *bool
	flagKey string
}

func (value *booleanFlagValue) Set(input string) error {
	if value == nil || value.target == nil {
		return fmt.Errorf("%s %q", booleanFlagInvalidValueErrorLabel, input)
	}
	normalized := strings.ToLower(strings.TrimSpace(input))
	if normalized == "" {
		normalized = booleanFlagTrueLiteral
	}
	parsed, ok := booleanFlagLiterals[normalized]
	if !ok {
		return fmt.Errorf("%s %q for --%s; accepted values: %s", booleanFlagInvalidValueErrorLabel, input, value.flagKey, booleanFlagAcceptedValuesListing)
	}
	*value.target = parsed
	return nil
}

func (value *booleanFlagValue) String() string {
	if value == nil || value.target == nil {
		return strconv.FormatBool(false)
	}
	return strconv.FormatBool(*value.target)
}

func (value *booleanFlagValue) Type() string {
	return booleanFlagTypeName
}

func registerBooleanFlag(flagSet *pflag.FlagSet, target *bool, name string, defaultValue bool, usage string) {
	if flagSet == nil || target == nil {
		return
	}
	*target = defaultValue
	flagSet.Var(&booleanFlagValue{target: target, flagKey: name}, name, usage)
	if lookup := flagSet.Lookup(name); lookup != nil {
		lookup.DefValue = strconv.FormatBool(defaultValue)
		lookup.NoOptDefVal = booleanFlagTrueLiteral
	}
}

// normalizeBooleanFlagArguments rewrites "--flag value" into "--flag=value"
// for boolean flags followed by a boolean literal, so "--copy no" works.
func normalizeBooleanFlagArguments(command *cobra.Command, arguments []string) []string {
	if command == nil || len(arguments) == 0 {
		return arguments
	}
	booleanFlags := map[string]struct{}{}
	collectBooleanFlagNames(command, booleanFlags)
	if len(booleanFlags) == 0 {
		return arguments
	}
	normalized := make([]string, 0, len(arguments))
	index := 0
	for index < len(arguments) {
		currentArgument := arguments[index]
		if currentArgument == "--" {
			normalized = append(normalized, arguments[index:]...)
			break
		}
		if strings.HasPrefix(currentArgument, "--") && !strings.Contains(currentArgument, "=") {
			flagName := strings.TrimPrefix(currentArgument, "--")
			if _, exists := booleanFlags[flagName]; exists && index+1 < len(arguments) {
				nextArgument := arguments[index+1]
				literal := strings.ToLower(strings.TrimSpace(nextArgument))
				if _, valid := booleanFlagLiterals[literal]; valid && !strings.HasPrefix(nextArgument, "-") {
					normalized = append(normalized, fmt.Sprintf("--%s=%s", flagName, nextArgument))
					index += 2
					continue
				}
			}
		}
		normalized = append(normalized, currentArgument)
		index++
	}
	return normalized
}

func collectBooleanFlagNames(command *cobra.Command, target map[string]struct{}) {
	if command == nil || target == nil {
		return
	}
	visit := func(flagSet *pflag.FlagSet) {
		if flagSet == nil {
			return
		}
		flagSet.VisitAll(func(flag *pflag.Flag) {
			if flag == nil || flag.Value == nil {
				return
			}
			if flag.Value.Type() == booleanFlagTypeName {
				target[flag.Name] = struct{}{}
			}
		})
	}
	visit(command.PersistentFlags())
	visit(command.Flags())
	for _, child := range command.Commands() {
		collectBooleanFlagNames(child, target)
	}
}

// variablesFlagValue collects repeated key=value arguments into template variables.
type variablesFlagValue struct {
	target *template.Variables
}

func (value *variablesFlagValue) Set(input string) error {
	key, variableValue, found := strings.Cut(input, variableSeparator)
	if !found {
		return fmt.Errorf(errorVariableFormat, input)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf(errorVariableEmptyKey, input)
	}
	if *value.target == nil {
		*value.target = template.Variables{}
	}
	if _, duplicated := (*value.target)[key]; duplicated {
		return fmt.Errorf(errorVariableDuplicatedKey, key)
	}
	(*value.target)[key] = variableValue
	return nil
}

func (value *variablesFlagValue) String() string {
	if value == nil || value.target == nil || len(*value.target) == 0 {
		return "[]"
	}
	pairs := make([]string, 0, len(*value.target))
	for key, variableValue := range *value.target {
		pairs = append(pairs, fmt.Sprintf("%s=%v", key, variableValue))
	}
	sort.Strings(pairs)
	return "[" + strings.Join(pairs, ",") + "]"
}

func (value *variablesFlagValue) Type() string {
	return variableFlagTypeName
}

func registerVariablesFlag(flagSet *pflag.FlagSet, target *template.Variables, name string, usage string) {
	if flagSet == nil || target == nil {
		return
	}
	flagSet.Var(&variablesFlagValue{target: target}, name, usage)
}
