package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"agenthub/config"
	"agenthub/render"
)

func main() {
	InitLogger()
	rootCmd := &cobra.Command{
		Use: "ahub",
	}
	rootCmd.PersistentFlags().String("fromConfigJson", "", "override config fields with a JSON document")
	rootCmd.PersistentFlags().StringP("output", "o", "", "output format: table, json or yaml")
	rootCmd.PersistentFlags().Bool("debug", false, "debug mode")

	configureCmd := &cobra.Command{
		Use: "configure",
		Run: func(cmd *cobra.Command, args []string) {
			baseUrl, err := cmd.Flags().GetString("baseUrl")
			handleError(err)
			token, err := cmd.Flags().GetString("token")
			handleError(err)
			handleError(NewConfigureCmd().Configure(baseUrl, token))
		},
	}
	configureCmd.Flags().String("baseUrl", "", "platform API base url")
	configureCmd.Flags().String("token", "", "bearer token")

	functionsCmd := &cobra.Command{
		Use: "functions",
	}
	functionsCmd.AddCommand(&cobra.Command{
		Use: "list",
		Run: func(cmd *cobra.Command, args []string) {
			handleError(setup(cmd).ListFunctions())
		},
	})
	functionsCreateCmd := &cobra.Command{
		Use:  "create <name>",
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runtime, err := cmd.Flags().GetString("runtime")
			handleError(err)
			handleError(setup(cmd).CreateFunction(args[0], runtime))
		},
	}
	functionsCreateCmd.Flags().String("runtime", "python3.12", "function runtime")
	functionsCmd.AddCommand(functionsCreateCmd)
	functionsCmd.AddCommand(&cobra.Command{
		Use:  "delete <functionId>",
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			handleError(setup(cmd).DeleteFunction(args[0]))
		},
	})
	functionsCmd.AddCommand(&cobra.Command{
		Use:  "start <functionId>",
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			handleError(setup(cmd).StartFunction(args[0]))
		},
	})

	deployCmd := &cobra.Command{
		Use:  "deploy <functionId> [path]",
		Args: cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			follow, err := cmd.Flags().GetBool("follow")
			handleError(err)
			dir := "."
			if len(args) > 1 {
				dir = args[1]
			}
			os.Exit(setup(cmd).Deploy(args[0], dir, follow))
		},
	}
	deployCmd.Flags().BoolP("follow", "f", false, "stay on the log stream until the rollout is done")

	logsCmd := &cobra.Command{
		Use:  "logs <functionId>",
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			follow, err := cmd.Flags().GetBool("follow")
			handleError(err)
			serve, err := cmd.Flags().GetBool("serve")
			handleError(err)
			os.Exit(setup(cmd).Logs(args[0], follow, serve))
		},
	}
	logsCmd.Flags().BoolP("follow", "f", false, "stay on the log stream until the rollout is done")
	logsCmd.Flags().Bool("serve", false, "serve the live state on a local http port")

	queryCmd := &cobra.Command{
		Use:  "query <agentId> <prompt>",
		Args: cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			handleError(setup(cmd).Query(args[0], args[1]))
		},
	}

	toolsCmd := &cobra.Command{
		Use: "tools",
		Run: func(cmd *cobra.Command, args []string) {
			handleError(setup(cmd).Tools())
		},
	}

	devCmd := &cobra.Command{
		Use:  "dev [path]",
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			handleError(NewDevCmd().Run(dir))
		},
	}

	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(functionsCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(devCmd)
	err := rootCmd.Execute()
	handleError(err)
}

// setup loads the config file, applies command-line overrides and wires the
// client command helper.
func setup(cmd *cobra.Command) *ClientCmd {
	debug, err := cmd.Flags().GetBool("debug")
	handleError(err)
	if debug {
		_ = os.Setenv("AHUB_DEBUG", "true")
		InitLogger()
	}
	path, err := config.DefaultPath()
	handleError(err)
	if clientConfig, err := config.Load(path); err == nil {
		config.ClientConfig = *clientConfig
	}
	configJson, err := cmd.Flags().GetString("fromConfigJson")
	handleError(err)
	if configJson != "" {
		handleError(config.SetConfigJson(configJson))
	}
	format, err := cmd.Flags().GetString("output")
	handleError(err)
	if format == "" {
		format = config.ClientConfig.DefaultFormat
	}
	return NewClientCmd(&config.ClientConfig, render.Format(format))
}

func handleError(err error) {
	if err != nil {
		zap.L().Sugar().Error(err)
		os.Exit(1)
	}
}
