package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/careerkit/cvchat/internal/attach"
	"github.com/careerkit/cvchat/internal/auth"
	"github.com/careerkit/cvchat/internal/command"
	"github.com/careerkit/cvchat/internal/config"
	"github.com/careerkit/cvchat/internal/types"
)

var (
	askToken   string
	askAttach  []string
	askConfigP string
)

var askCmd = &cobra.Command{
	Use:   "ask [sentence...]",
	Short: "Run a single chat command from the terminal",
	Long:  `Run one sentence through the command pipeline and print the normalized response. PDF results are written to the derived filename in the current directory.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askToken, "token", "", "Bearer token for executed endpoints (defaults to $USER_TOKEN)")
	askCmd.Flags().StringArrayVar(&askAttach, "attach", nil, "File to attach (repeatable)")
	askCmd.Flags().StringVar(&askConfigP, "config", "", "Path to JSON config file (optional)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg := config.FromEnv()
	if askConfigP != "" {
		fileCfg, err := config.Load(askConfigP)
		if err != nil {
			return err
		}
		cfg = fileCfg.Merge(cfg)
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer a.Close()

	token := askToken
	if token == "" {
		token = os.Getenv("USER_TOKEN")
	}

	sess, err := a.newSession(auth.StaticSource(token))
	if err != nil {
		return err
	}

	attachments, err := attach.LoadFiles(cmd.Context(), askAttach, cfg.MaxAttachmentBytes)
	if err != nil {
		return err
	}

	sentence := strings.Join(args, " ")
	result, err := sess.ExecuteCommand(cmd.Context(), sentence, attachments)
	if err != nil {
		return err
	}

	printResult(result)
	if !result.Success {
		os.Exit(1)
	}
	return nil
}

func printResult(result command.Result) {
	resp := result.Response
	if resp == nil {
		if result.Error != "" {
			fmt.Printf("Error: %s\n", result.Error)
		}
		return
	}

	switch resp.Kind {
	case types.ResponseText:
		fmt.Println(resp.Message)
	case types.ResponseFile:
		fmt.Println(resp.Message)
		if len(resp.Payload) > 0 {
			if err := os.WriteFile(resp.Filename, resp.Payload, 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "failed to save %s: %v\n", resp.Filename, err)
				return
			}
			fmt.Printf("Saved %s (%d bytes)\n", resp.Filename, len(resp.Payload))
		}
	case types.ResponseData:
		fmt.Println(resp.Message)
		var pretty map[string]any
		if err := json.Unmarshal(resp.Data, &pretty); err == nil {
			encoded, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Println(string(encoded))
		}
	case types.ResponseAction:
		fmt.Println(resp.Message)
		for _, step := range resp.FollowUps {
			fmt.Printf("  - %s\n", step)
		}
	case types.ResponseError:
		fmt.Printf("Error: %s\n", resp.ErrorMessage)
		for _, hint := range resp.Suggestions {
			fmt.Printf("  - %s\n", hint)
		}
	}
}
