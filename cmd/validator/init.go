package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/validator/internal/config"
	"github.com/ShayCichocki/validator/internal/specialist"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Write starter configuration files",
	Long: `Write starter configuration into a directory.

Creates:
  .validator.yaml   project settings pointing at the files below
  agents.yaml       specialist agent definitions
  questions.yaml    orchestrator model and interview questions

Existing files are left alone unless --force is given.

Examples:
  validator init              # Initialize current directory
  validator init ./myproject  # Initialize specific directory`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")
}

const projectConfigTemplate = `# Validator project settings. Environment variables win over this file.
anthropic:
  api_key: ${ANTHROPIC_API_KEY}
specialists:
  agents_file: agents.yaml
  questions_file: questions.yaml
search:
  api_key: ${TAVILY_API_KEY}
session:
  store: sqlite
server:
  addr: ":8000"
  # record_dir: recordings
log:
  level: info
`

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}
	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initializing validator in %s...\n\n", absPath)

	files := []struct {
		name string
		data []byte
	}{
		{".validator.yaml", []byte(projectConfigTemplate)},
		{"agents.yaml", specialist.DefaultAgentsYAML()},
		{"questions.yaml", specialist.DefaultQuestionsYAML()},
	}
	for _, f := range files {
		if err := writeStarterFile(out, filepath.Join(absPath, f.name), f.data, initForce); err != nil {
			return err
		}
	}

	checkAPIKey(out)

	fmt.Fprintf(out, "\n%s Initialization complete!\n\n", color.GreenString("✓"))
	fmt.Fprintln(out, "Next steps:")
	fmt.Fprintln(out, "  validator chat     # talk to the analyst")
	fmt.Fprintln(out, "  validator serve    # run the HTTP API")
	return nil
}

func writeStarterFile(out io.Writer, path string, data []byte, force bool) error {
	name := filepath.Base(path)
	if _, err := os.Stat(path); err == nil && !force {
		printStatus(out, "-", name+" exists, skipped (use --force to overwrite)", color.Faint)
		return nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	printStatus(out, "✓", "Created "+name, color.FgGreen)
	return nil
}

// printStatus prints a status line with a colored symbol.
func printStatus(out io.Writer, symbol, message string, attr color.Attribute) {
	fmt.Fprintf(out, "%s %s\n", color.New(attr).Sprint(symbol), message)
}

// checkAPIKey reports whether an Anthropic key is available and well formed.
func checkAPIKey(out io.Writer) {
	key, err := config.GetAPIKey(nil)
	if err != nil {
		printStatus(out, "⚠", "ANTHROPIC_API_KEY not set (you can set it later)", color.FgYellow)
		return
	}
	if err := config.ValidateAPIKey(key); err != nil {
		printStatus(out, "⚠", fmt.Sprintf("ANTHROPIC_API_KEY looks wrong: %v", err), color.FgYellow)
		return
	}
	printStatus(out, "✓", "ANTHROPIC_API_KEY is set", color.FgGreen)
}
