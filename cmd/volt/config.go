package main

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	voltcfg "github.com/voltgpu/volt/config"
)

const userTokenHelp = "Log in on the marketplace website and copy your API token into the CLI config."

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config <command>",
		Short: "Manage the volt configuration",
	}
	cmd.AddCommand(newConfigListCommand())
	cmd.AddCommand(newConfigSetCommand())
	cmd.AddCommand(newConfigUnsetCommand())
	cmd.AddCommand(newConfigTestCommand())
	return cmd
}

func newConfigListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration properties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := reflect.TypeOf(*voltConfig)
			v := reflect.ValueOf(*voltConfig)
			for i := 0; i < t.NumField(); i++ {
				value := fmt.Sprintf("%v", v.Field(i).Interface())
				if value == "" || value == "0" {
					value = "(unset)"
				}
				if err := printTableRow(propertyKey(t.Field(i)), color.BlueString(value)); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newConfigSetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set <property> <value>",
		Short: "Set a specific config setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateConfigProperty(args[0], args[1])
		},
	}
}

func newConfigUnsetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unset <property>",
		Short: "Unset a specific config setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := updateConfigProperty(args[0], ""); err != nil {
				return err
			}
			if !quiet {
				fmt.Printf("Unset %s\n", args[0])
			}
			return nil
		},
	}
}

func newConfigTestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Volt Configuration Test")
			fmt.Println()

			if len(voltConfig.UserToken) == 0 {
				fmt.Println("You don't have an API token configured.")
				fmt.Println(userTokenHelp)
				return errors.New("user token not configured")
			}

			user, err := volt.WhoAmI(ctx)
			if err != nil {
				fmt.Println("There was a problem authenticating with your API token.")
				fmt.Println(userTokenHelp)
				return err
			}

			fmt.Printf("Authenticated as user: %q (%s)\n", user.Username, user.ID)
			return nil
		},
	}
}

// updateConfigProperty sets a config field addressed by its yaml key. An
// empty value resets the field to its zero value.
func updateConfigProperty(property, value string) error {
	configFilePath := voltcfg.GetFilePath()
	cfg, err := voltcfg.ReadConfigFromFile(configFilePath)
	if os.IsNotExist(errors.Cause(err)) {
		cfg = &voltcfg.Config{}
	} else if err != nil {
		return err
	}

	t := reflect.TypeOf(*cfg)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if propertyKey(field) != property {
			continue
		}

		target := reflect.ValueOf(cfg).Elem().Field(i)
		if value == "" {
			target.Set(reflect.Zero(field.Type))
		} else {
			switch field.Type.Kind() {
			case reflect.String:
				target.SetString(strings.TrimSpace(value))
			case reflect.Float64:
				parsed, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return errors.Wrapf(err, "invalid value for %q", property)
				}
				target.SetFloat(parsed)
			default:
				return errors.Errorf("unsupported config property type for %q", property)
			}
		}
		return voltcfg.WriteConfig(cfg, configFilePath)
	}
	return errors.Errorf("unknown config property: %q", property)
}

// propertyKey returns a field's yaml key without tag options.
func propertyKey(field reflect.StructField) string {
	key := field.Tag.Get("yaml")
	if i := strings.Index(key, ","); i >= 0 {
		key = key[:i]
	}
	return key
}
