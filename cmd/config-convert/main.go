package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chrissnell/suntrack/pkg/config"
)

func main() {
	var (
		yamlFile   = flag.String("yaml", "", "Path to YAML configuration file (required)")
		sqliteFile = flag.String("sqlite", "", "Path to SQLite database file (required)")
		export     = flag.Bool("export", false, "Convert SQLite→YAML instead of YAML→SQLite")
		force      = flag.Bool("force", false, "Overwrite an existing target file")
		dryRun     = flag.Bool("dry-run", false, "Show what would be done without executing")
	)
	flag.Parse()

	if *yamlFile == "" || *sqliteFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -yaml <config.yaml> -sqlite <config.db> [-export]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	source, target := *yamlFile, *sqliteFile
	if *export {
		source, target = *sqliteFile, *yamlFile
	}

	if _, err := os.Stat(source); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Error: source file does not exist: %s\n", source)
		os.Exit(1)
	}
	if _, err := os.Stat(target); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: target file already exists: %s\n", target)
		fmt.Fprintf(os.Stderr, "Use -force to overwrite or choose a different filename\n")
		os.Exit(1)
	}

	fmt.Printf("Converting configuration...\n")
	fmt.Printf("  Source: %s\n", source)
	fmt.Printf("  Target: %s\n", target)

	if *dryRun {
		fmt.Println("DRY RUN - No changes will be made")
	}

	var err error
	if *export {
		err = sqliteToYAML(*sqliteFile, *yamlFile, *dryRun)
	} else {
		err = yamlToSQLite(*yamlFile, *sqliteFile, *force, *dryRun)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *dryRun {
		fmt.Println("DRY RUN complete - nothing written")
		return
	}
	fmt.Printf("Conversion completed successfully!\n")
	if !*export {
		fmt.Printf("You can now use the SQLite backend with: -config-backend sqlite -config %s\n", *sqliteFile)
	}
}

func yamlToSQLite(yamlFile, sqliteFile string, force, dryRun bool) error {
	fmt.Printf("Loading YAML configuration...\n")
	cfg, err := loadValid(config.NewYAMLProvider(yamlFile))
	if err != nil {
		return err
	}
	printConfigSummary(cfg)
	if dryRun {
		return nil
	}

	if force {
		if err := os.Remove(sqliteFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing existing SQLite file: %w", err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(sqliteFile), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	fmt.Printf("Creating SQLite database...\n")
	provider, err := config.NewSQLiteProvider(sqliteFile)
	if err != nil {
		return err
	}
	defer provider.Close()

	if err := provider.InitSchema(); err != nil {
		return err
	}

	fmt.Printf("  Inserting server settings and %d sites...\n", len(cfg.Sites))
	if err := provider.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	return nil
}

func sqliteToYAML(sqliteFile, yamlFile string, dryRun bool) error {
	fmt.Printf("Loading SQLite configuration...\n")
	provider, err := config.NewSQLiteProvider(sqliteFile)
	if err != nil {
		return err
	}
	defer provider.Close()

	cfg, err := loadValid(provider)
	if err != nil {
		return err
	}
	printConfigSummary(cfg)
	if dryRun {
		return nil
	}
	return config.WriteYAML(yamlFile, cfg)
}

// loadValid reads a configuration and refuses to convert one the server
// would reject anyway. Defaults are checked but not written out.
func loadValid(provider config.ConfigProvider) (*config.ConfigData, error) {
	cfg, err := provider.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	check := *cfg
	check.ApplyDefaults()
	if err := check.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func printConfigSummary(cfg *config.ConfigData) {
	fmt.Println("\nConfiguration Summary:")
	fmt.Printf("Server: %s:%d\n", cfg.Server.ListenAddr, cfg.Server.Port)
	fmt.Printf("Sites (%d):\n", len(cfg.Sites))
	for _, site := range cfg.Sites {
		fmt.Printf("  - %s (%.4f, %.4f, %s)\n", site.Name, site.Latitude, site.Longitude, site.TimeZone)
	}
	fmt.Println()
}
