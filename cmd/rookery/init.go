package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sagarc03/rookery/config"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a starter configuration file",
	Long: `Interactively create a configuration file for the server.

The prompts cover the server port, the base path of the collection and the
storage driver with its settings. Everything else keeps its default and can
be edited in the file afterwards. The file is written to ./config.yaml
unless a path is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var initForce bool

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing file")
	rootCmd.AddCommand(initCmd)
}

// fileConfig is the subset of the configuration written by init.
type fileConfig struct {
	Env    string `yaml:"env"`
	Server struct {
		Port     int    `yaml:"port"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Storage struct {
		Driver string       `yaml:"driver"`
		Path   string       `yaml:"path,omitempty"`
		Seed   string       `yaml:"seed,omitempty"`
		Blob   *blobSection `yaml:"blob,omitempty"`
	} `yaml:"storage"`
	Database *databaseSection `yaml:"database,omitempty"`
	Metrics  struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

type blobSection struct {
	Endpoint     string `yaml:"endpoint"`
	Bucket       string `yaml:"bucket"`
	UseSSL       bool   `yaml:"use_ssl"`
	CreateBucket bool   `yaml:"create_bucket"`
}

type databaseSection struct {
	Type string `yaml:"type"`
	DSN  string `yaml:"dsn"`
}

func runInit(cmd *cobra.Command, args []string) error {
	path := "config.yaml"
	if len(args) == 1 {
		path = args[0]
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	defaults, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	out, err := promptConfig(defaults)
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) {
			fmt.Println("Cancelled.")
			return nil
		}
		return err
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err = os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Configuration written to %s\n", path)
	return nil
}

func promptConfig(defaults *config.Config) (*fileConfig, error) {
	var out fileConfig
	out.Env = defaults.Env

	portPrompt := promptui.Prompt{
		Label:   "Port",
		Default: strconv.Itoa(defaults.Server.Port),
		Validate: func(input string) error {
			n, err := strconv.Atoi(input)
			if err != nil || n < 1 || n > 65535 {
				return errors.New("port must be between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, err
	}
	out.Server.Port, _ = strconv.Atoi(portStr)

	basePath, err := prompt("Base path", defaults.Server.BasePath, func(input string) error {
		if !strings.HasPrefix(input, "/") {
			return errors.New("base path must start with /")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	out.Server.BasePath = basePath

	drivers := []string{config.DriverFilesystem, config.DriverMemory, config.DriverDatabase, config.DriverBlob}
	driverSelect := promptui.Select{
		Label: "Storage driver",
		Items: drivers,
	}
	_, driver, err := driverSelect.Run()
	if err != nil {
		return nil, err
	}
	out.Storage.Driver = driver

	switch driver {
	case config.DriverFilesystem:
		if out.Storage.Path, err = prompt("Storage directory", defaults.Storage.Path, required("storage directory")); err != nil {
			return nil, err
		}

	case config.DriverMemory:
		if out.Storage.Seed, err = prompt("Seed directory or zip (optional)", "", nil); err != nil {
			return nil, err
		}

	case config.DriverDatabase:
		typeSelect := promptui.Select{
			Label: "Database type",
			Items: []string{"sqlite", "postgres"},
		}
		_, dbType, selectErr := typeSelect.Run()
		if selectErr != nil {
			return nil, selectErr
		}

		dsnDefault := defaults.Database.DSN
		if dbType == "postgres" {
			dsnDefault = "postgres://localhost:5432/rookery?sslmode=disable"
		}
		dsn, promptErr := prompt("Connection string", dsnDefault, required("connection string"))
		if promptErr != nil {
			return nil, promptErr
		}

		out.Database = &databaseSection{Type: dbType, DSN: dsn}

	case config.DriverBlob:
		endpoint, promptErr := prompt("Endpoint (host:port)", "localhost:9000", required("endpoint"))
		if promptErr != nil {
			return nil, promptErr
		}
		bucket, promptErr := prompt("Bucket", "rookery", required("bucket"))
		if promptErr != nil {
			return nil, promptErr
		}

		out.Storage.Blob = &blobSection{
			Endpoint:     endpoint,
			Bucket:       bucket,
			UseSSL:       confirm("Use TLS"),
			CreateBucket: confirm("Create the bucket if missing"),
		}
		fmt.Println("Credentials are read from ROOKERY_STORAGE_BLOB_ACCESS_KEY and ROOKERY_STORAGE_BLOB_SECRET_KEY.")
	}

	out.Metrics.Enabled = confirm("Enable Prometheus metrics")

	return &out, nil
}

func prompt(label, def string, validate promptui.ValidateFunc) (string, error) {
	p := promptui.Prompt{
		Label:    label,
		Default:  def,
		Validate: validate,
	}
	return p.Run()
}

func required(what string) promptui.ValidateFunc {
	return func(input string) error {
		if strings.TrimSpace(input) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

// confirm treats anything but an explicit yes as no.
func confirm(label string) bool {
	p := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	_, err := p.Run()
	return err == nil
}
