// maptool is a CLI utility for inspecting BlueMap map data without a window.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/nosadnile/bluemap-go/internal/config"
	"github.com/nosadnile/bluemap-go/internal/fetch"
	"github.com/nosadnile/bluemap-go/internal/logger"
	"github.com/nosadnile/bluemap-go/internal/tiles"
	"github.com/nosadnile/bluemap-go/internal/world"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "info":
		err = cmdInfo(args)
	case "height":
		err = cmdHeight(args)
	case "tiles":
		err = cmdTiles(args)
	case "path":
		err = cmdPath(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`maptool - BlueMap map data utility

Usage:
  maptool <command> [options]

Commands:
  info <data-url>                 Show map settings
  height <data-url> <x> <z>       Load the area around (x, z) and print the terrain height
  tiles <data-url> <x> <z>        Load the area around (x, z) and print tile counts per layer
  path <x> <z> | path <tile-path> Convert between tile coordinates and tile paths

Options (height, tiles):
  -hires <blocks>    hires view distance (default 100)
  -lowres <blocks>   lowres view distance (default 1000)
  -timeout <dur>     how long to wait for tiles (default 30s)
  -debug             log fetches

Examples:
  maptool info http://localhost:8100/maps/world/
  maptool height -hires 64 http://localhost:8100/maps/world/ 120 -340
  maptool path 1234 -5`)
}

type areaFlags struct {
	hires, lowres float64
	timeout       time.Duration
	debug         bool
}

func parseArea(name string, args []string) (areaFlags, []string, error) {
	var f areaFlags
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.Float64Var(&f.hires, "hires", 100, "hires view distance in blocks")
	fs.Float64Var(&f.lowres, "lowres", 1000, "lowres view distance in blocks")
	fs.DurationVar(&f.timeout, "timeout", 30*time.Second, "how long to wait for tiles")
	fs.BoolVar(&f.debug, "debug", false, "log fetches")
	if err := fs.Parse(args); err != nil {
		return f, nil, err
	}
	return f, fs.Args(), nil
}

// loadMap initializes logging and loads the map's settings and textures.
func loadMap(ctx context.Context, dataURL string, debug bool) (*world.Map, error) {
	level := "warn"
	if debug {
		level = "debug"
	}
	if err := logger.Init(level, ""); err != nil {
		return nil, err
	}

	cfg := config.Default()
	cfg.Map.DataURL = dataURL
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := fetch.New(cfg.Network, nil)
	m := world.NewMap(world.IDFromURL(cfg.Map.DataURL), cfg.Map.DataURL, client, world.Options{})
	if err := m.Load(ctx, fetch.CacheToken()); err != nil {
		return nil, err
	}
	return m, nil
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: maptool info <data-url>")
	}

	m, err := loadMap(context.Background(), args[0], false)
	if err != nil {
		return err
	}
	defer m.Unload()

	s := m.Settings()
	fmt.Printf("Map:          %s (%s)\n", s.Name, s.ID)
	fmt.Printf("Data URL:     %s\n", s.DataURL)
	fmt.Printf("Start:        %.0f, %.0f\n", s.StartPos.X, s.StartPos.Z)
	fmt.Printf("Sky color:    %.2f %.2f %.2f\n", s.SkyColor[0], s.SkyColor[1], s.SkyColor[2])
	fmt.Printf("Ambient:      %.2f\n", s.AmbientLight)
	fmt.Printf("Hires tiles:  %.0fx%.0f, translate %.0f %.0f\n",
		s.Hires.TileSize.X, s.Hires.TileSize.Z, s.Hires.Translate.X, s.Hires.Translate.Z)
	fmt.Printf("Lowres tiles: %.0fx%.0f, %d levels, factor %.0f\n",
		s.Lowres.TileSize.X, s.Lowres.TileSize.Z, s.Lowres.LODCount, s.Lowres.LODFactor)
	fmt.Printf("Textures:     %d\n", len(m.Materials()))
	return nil
}

// loadArea loads the map and waits for the area around (x, z).
func loadArea(name string, args []string) (*world.Map, float64, float64, error) {
	f, rest, err := parseArea(name, args)
	if err != nil {
		return nil, 0, 0, err
	}
	if len(rest) < 3 {
		return nil, 0, 0, fmt.Errorf("usage: maptool %s [options] <data-url> <x> <z>", name)
	}
	x, err := strconv.ParseFloat(rest[1], 64)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("invalid x: %w", err)
	}
	z, err := strconv.ParseFloat(rest[2], 64)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("invalid z: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	m, err := loadMap(ctx, rest[0], f.debug)
	if err != nil {
		return nil, 0, 0, err
	}
	m.LoadMapArea(x, z, f.hires, f.lowres)
	if err := m.Settle(ctx); err != nil {
		m.Unload()
		return nil, 0, 0, fmt.Errorf("waiting for tiles: %w", err)
	}
	return m, x, z, nil
}

func cmdHeight(args []string) error {
	m, x, z, err := loadArea("height", args)
	if err != nil {
		return err
	}
	defer m.Unload()

	h, ok := m.TerrainHeightAt(x, z)
	if !ok {
		return fmt.Errorf("no loaded tile covers %.1f, %.1f", x, z)
	}
	fmt.Printf("%.2f\n", h)
	return nil
}

func cmdTiles(args []string) error {
	m, _, _, err := loadArea("tiles", args)
	if err != nil {
		return err
	}
	defer m.Unload()

	printLayer := func(name string, lm *tiles.Manager) {
		vx, vz := lm.ViewDistance()
		fmt.Printf("%-10s center %-12s view %dx%d  tiles %4d  loaded %4d\n",
			name, lm.Center(), vx, vz, lm.Len(), lm.TileMap().Count())
	}
	for i := len(m.Lowres()) - 1; i >= 0; i-- {
		printLayer(fmt.Sprintf("lowres %d", i+1), m.Lowres()[i])
	}
	printLayer("hires", m.Hires())
	return nil
}

func cmdPath(args []string) error {
	switch len(args) {
	case 1:
		x, z, err := tiles.CoordsFromPath(args[0])
		if err != nil {
			return err
		}
		fmt.Println(tiles.Coord{X: x, Z: z})
	case 2:
		x, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid x: %w", err)
		}
		z, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid z: %w", err)
		}
		fmt.Println(tiles.PathFromCoords(x, z))
	default:
		return fmt.Errorf("usage: maptool path <x> <z> | maptool path <tile-path>")
	}
	return nil
}
