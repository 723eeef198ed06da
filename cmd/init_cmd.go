package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tributai/tributai-migrate/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file interactively",
	Long:  `Walk through prompts to create a configuration file at ~/.tributai/migrate.yaml.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reader := bufio.NewReader(os.Stdin)
		cfg := config.Default()

		fmt.Println("tributai-migrate Configuration Setup")
		fmt.Println("====================================")
		fmt.Println()

		fmt.Println("Source PostgreSQL")
		fmt.Println("-----------------")
		cfg.Source.Host = prompt(reader, "Host", "localhost")
		port, err := promptPort(reader, cfg.Source.Port)
		if err != nil {
			return err
		}
		cfg.Source.Port = port
		cfg.Source.Database = prompt(reader, "Database name", "")
		cfg.Source.Schema = prompt(reader, "Schema", cfg.Source.Schema)
		cfg.Source.Username = prompt(reader, "Username", "")
		cfg.Source.Password = prompt(reader, "Password (or ${ENV:PG_PASSWORD})", "${ENV:PG_PASSWORD}")
		fmt.Println()

		fmt.Println("Destination SQL Server")
		fmt.Println("----------------------")
		cfg.Target.Host = prompt(reader, "Host", "localhost")
		port, err = promptPort(reader, cfg.Target.Port)
		if err != nil {
			return err
		}
		cfg.Target.Port = port
		cfg.Target.Database = prompt(reader, "Database name", "TRIBUTAI")
		cfg.Target.Schema = prompt(reader, "Schema", cfg.Target.Schema)
		cfg.Target.Username = prompt(reader, "Username", "")
		cfg.Target.Password = prompt(reader, "Password (or ${ENV:SQLSERVER_PASSWORD})", "${ENV:SQLSERVER_PASSWORD}")
		cfg.Target.TrustServerCertificate = strings.HasPrefix(strings.ToLower(prompt(reader, "Trust server certificate (y/n)", "n")), "y")
		fmt.Println()

		batch, err := strconv.Atoi(prompt(reader, "Rows per window", strconv.Itoa(cfg.Migration.BatchSize)))
		if err != nil || batch <= 0 {
			return fmt.Errorf("invalid batch size")
		}
		cfg.Migration.BatchSize = batch
		cfg.Logging.Directory = ""

		cfgPath := config.ExpandHome(config.DefaultPath)
		if cfgFile != "" {
			cfgPath = cfgFile
		}

		if err := cfg.Save(cfgPath); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}

		fmt.Printf("Config written to %s\n", cfgPath)
		fmt.Println()
		fmt.Println("Next steps:")
		fmt.Println("  tributai-migrate check      Test both connections")
		fmt.Println("  tributai-migrate provision  Create the destination tables")
		fmt.Println("  tributai-migrate migrate    Copy the data")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func prompt(reader *bufio.Reader, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("  %s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("  %s: ", label)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}

func promptPort(reader *bufio.Reader, defaultPort int) (int, error) {
	s := prompt(reader, "Port", strconv.Itoa(defaultPort))
	port, err := strconv.Atoi(s)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port: %s", s)
	}
	return port, nil
}
