package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"path"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/voltgpu/volt/client"
	"github.com/voltgpu/volt/config"
)

// These variables are set externally by the linker.
var (
	version = "dev"
	commit  = "unknown"
)

var volt *client.Client
var voltConfig *config.Config
var ctx context.Context
var quiet bool
var format string

const (
	formatJSON = "json"
)

var jsonOut *json.Encoder
var tableOut *tabwriter.Writer

func main() {
	jsonOut = json.NewEncoder(os.Stdout)
	jsonOut.SetIndent("", "    ")

	tableOut = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer tableOut.Flush()

	var cancel context.CancelFunc
	ctx, cancel = withSignal(context.Background())
	defer cancel()

	root := &cobra.Command{
		Use:           "volt <command>",
		Short:         "Volt is a client for the GPU rental marketplace.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("Volt %s (%q)", version, commit),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if voltConfig, err = config.New(); err != nil {
				return err
			}
			if voltConfig.UserToken == "" {
				if err := login(); err != nil {
					return err
				}
			}

			volt, err = client.NewClient(
				voltConfig.Address,
				voltConfig.UserToken,
			)
			return err
		},
	}

	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode")
	root.PersistentFlags().StringVar(&format, "format", "", "Output format")

	root.AddCommand(newAccountCommand())
	root.AddCommand(newConfigCommand())
	root.AddCommand(newDeployCommand())
	root.AddCommand(newInstanceCommand())
	root.AddCommand(newOfferCommand())
	root.AddCommand(newRecommendCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %+v\n", color.RedString("Error:"), err)
		os.Exit(1)
	}
}

// Return a cancelable context which ends on signal interrupt.
//
// The first interrupt cancels the context, allowing callers to terminate
// gracefully. Upon receiving a second interrupt the process is terminated with
// exit code 130 (128 + SIGINT)
func withSignal(parent context.Context) (context.Context, context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	ctx, cancel := context.WithCancel(parent)

	// In most cases this routine will leak due to the lack of a second signal.
	// That's OK since this is expected to last for the life of the process.
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
			// Do nothing.
		}
		<-sigChan
		os.Exit(130)
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// login prompts the user for an authentication token, validates it,
// and writes it to the configuration file.
func login() error {
	loginURL, err := url.Parse(voltConfig.Address)
	if err != nil {
		return err
	}
	loginURL.Path = path.Join(loginURL.Path, "account", "keys")

	fmt.Println(
		"You are not logged in. To log in, find your API token here:",
		color.BlueString(loginURL.String()),
	)
	fmt.Print("Enter your API token: ")
	reader := bufio.NewReader(os.Stdin)
	for {
		input, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		voltConfig.UserToken = strings.TrimSpace(input)

		volt, err = client.NewClient(
			voltConfig.Address,
			voltConfig.UserToken,
		)
		if err != nil {
			return err
		}
		user, err := volt.WhoAmI(ctx)
		if err != nil {
			fmt.Print("Invalid API token, please try again: ")
			continue
		}

		fmt.Printf("Successfully logged in as %q\n\n", user.Username)
		break
	}
	return config.WriteConfig(voltConfig, config.GetFilePath())
}

// confirm prompts the user for a yes/no answer and defaults to no.
// Returns true, nil if the user enters yes.
func confirm(prompt string) (bool, error) {
	fmt.Print(prompt, " [y/N]: ")
	reader := bufio.NewReader(os.Stdin)
	for {
		input, err := reader.ReadString('\n')
		if err != nil {
			return false, err
		}
		input = strings.TrimSuffix(input, "\n")
		input = strings.ToLower(input)
		switch input {
		case "y", "yes":
			return true, nil
		case "", "n", "no":
			return false, nil
		default:
			fmt.Print("Please type 'yes' or 'no': ")
		}
	}
}
