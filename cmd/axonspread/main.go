// Command axonspread measures the three-dimensional spread of a neuronal
// projection in a stack of 2D slice images.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"axonspread/internal/models"
	"axonspread/pkg/config"
)

const version = "1.0.0"

// Globals are the flags shared by every command
type Globals struct {
	Config    string `name:"config" short:"c" help:"Configuration file" default:"config.yaml" type:"path"`
	Verbose   bool   `name:"verbose" short:"v" help:"Enable debug logging"`
	LogFormat string `name:"log-format" help:"Log format (text or json), overrides the configuration"`
	LogFile   string `name:"log-file" help:"Also append logs to this file" type:"path"`
}

// CLI defines the command-line interface for axonspread.
type CLI struct {
	Globals

	Analyze        AnalyzeCmd        `cmd:"" help:"Quantify the spread of a slice stack"`
	History        HistoryCmd        `cmd:"" help:"List analyses stored in the results database"`
	InitConfig     InitConfigCmd     `cmd:"" name:"init-config" help:"Write a default configuration file"`
	ValidateVoxels ValidateVoxelsCmd `cmd:"" name:"validate-voxels" help:"Check voxel sizes for plausibility"`
	Version        VersionCmd        `cmd:"" help:"Print version information"`
}

// loadConfig reads the configuration file and applies the global overrides
func (g *Globals) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(g.Config)
	if err != nil {
		return nil, err
	}
	if g.Verbose {
		cfg.Output.Verbose = true
	}
	if g.LogFormat != "" {
		cfg.Output.LogFormat = g.LogFormat
	}
	if g.LogFile != "" {
		cfg.Output.LogFile = g.LogFile
	}
	return cfg, nil
}

// InitConfigCmd writes the default configuration.
type InitConfigCmd struct {
	Path  string `arg:"" optional:"" help:"Destination (defaults to --config)" type:"path"`
	Force bool   `help:"Overwrite an existing file"`
}

func (c *InitConfigCmd) Run(g *Globals) error {
	path := c.Path
	if path == "" {
		path = g.Config
	}
	if _, err := os.Stat(path); err == nil && !c.Force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.CreateDefaultConfigFile(path); err != nil {
		return err
	}
	fmt.Printf("Default configuration written to %s\n", path)
	return nil
}

// ValidateVoxelsCmd checks voxel sizes against the configured limits.
type ValidateVoxelsCmd struct {
	X float64 `name:"x" help:"Voxel size along X in µm (defaults to the configuration)"`
	Y float64 `name:"y" help:"Voxel size along Y in µm (defaults to the configuration)"`
	Z float64 `name:"z" help:"Voxel size along Z in µm (defaults to the configuration)"`
}

func (c *ValidateVoxelsCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	voxel := overrideVoxel(cfg.Voxel, c.X, c.Y, c.Z)

	warnings, err := cfg.ValidateVoxelSize(voxel)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Printf("Warning: %s\n", w)
	}
	if len(warnings) == 0 {
		fmt.Printf("Voxel size %g x %g x %g µm is plausible\n", voxel.X, voxel.Y, voxel.Z)
	}
	return nil
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("axonspread version %s\n", version)
	return nil
}

// overrideVoxel replaces each axis of base with the matching value when it is non-zero
func overrideVoxel(base models.VoxelSize, x, y, z float64) models.VoxelSize {
	if x != 0 {
		base.X = x
	}
	if y != 0 {
		base.Y = y
	}
	if z != 0 {
		base.Z = z
	}
	return base
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("axonspread"),
		kong.Description("Quantify the 3D spread of a neuronal projection from a slice stack"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)
	if err != nil {
		return err
	}

	ctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	return ctx.Run(&cli.Globals)
}
