package main

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/bodgit/datsurface"
	"github.com/bodgit/datsurface/surface"
	"github.com/urfave/cli/v2"
)

const defaultDB = "datsurface.db"

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version, V",
		Usage: "print the version",
	}
}

func parseID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint32(id), nil
}

func open(c *cli.Context) (*datsurface.Archive, *datsurface.Writer, error) {
	logger := log.New(ioutil.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}

	db, err := datsurface.NewArchive(c.String("db"))
	if err != nil {
		return nil, nil, err
	}

	w := datsurface.New(db, logger, datsurface.Options{
		IncreaseIterations: c.Bool("increase-iterations"),
		Workers:            c.Int("workers"),
	})

	return db, w, nil
}

func withWriter(args int, fn func(*cli.Context, *datsurface.Writer) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		if c.NArg() < args {
			cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
		}

		db, w, err := open(c)
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		defer db.Close()

		if err := fn(c, w); err != nil {
			return cli.NewExitError(err, 1)
		}

		return nil
	}
}

var formatFlag = &cli.StringFlag{
	Name:  "format",
	Value: surface.Raw32WithAlpha.String(),
	Usage: "pixel format to encode with",
}

func main() {
	app := cli.NewApp()

	app.Name = "datsurface"
	app.Usage = "Game archive texture surface utility"
	app.Version = "1.0.0"

	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			EnvVars: []string{"DATSURFACE_DB"},
			Value:   filepath.Join(cwd, defaultDB),
			Usage:   "path to database",
		},
		&cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "increase verbosity",
		},
		&cli.IntFlag{
			Name:  "workers",
			Value: 10,
			Usage: "number of concurrent encoders",
		},
		&cli.BoolFlag{
			Name:  "increase-iterations",
			Usage: "bump the archive iteration before writing",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:      "formats",
			Usage:     "List supported pixel formats",
			ArgsUsage: " ",
			Action: func(c *cli.Context) error {
				for _, f := range surface.Formats() {
					if f.Indexed() {
						fmt.Printf("%#x\t%v\t(needs palette)\n", uint32(f), f)
						continue
					}
					fmt.Printf("%#x\t%v\n", uint32(f), f)
				}
				return nil
			},
		},
		{
			Name:      "info",
			Usage:     "Show a surface",
			ArgsUsage: "ID",
			Action: withWriter(1, func(c *cli.Context, w *datsurface.Writer) error {
				id, err := parseID(c.Args().First())
				if err != nil {
					return err
				}
				s, err := w.GetRenderSurface(id)
				if err != nil {
					return err
				}
				fmt.Printf("%#08x %v %dx%d %d bytes", s.ID, s.Format, s.Width, s.Height, len(s.Data))
				if s.HasPalette {
					fmt.Printf(" palette %#08x", s.PaletteID)
				}
				fmt.Println()
				return nil
			}),
		},
		{
			Name:      "add",
			Usage:     "Add a surface from an image",
			ArgsUsage: "ID FILE",
			Flags:     []cli.Flag{formatFlag},
			Action: withWriter(2, func(c *cli.Context, w *datsurface.Writer) error {
				id, err := parseID(c.Args().Get(0))
				if err != nil {
					return err
				}
				format, err := surface.ParseFormat(c.String("format"))
				if err != nil {
					return err
				}
				return w.AddRenderSurface(id, c.Args().Get(1), format)
			}),
		},
		{
			Name:      "update",
			Usage:     "Replace the image of a surface",
			ArgsUsage: "ID FILE",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "resize",
					Usage: "scale the image to the existing dimensions",
				},
			},
			Action: withWriter(2, func(c *cli.Context, w *datsurface.Writer) error {
				id, err := parseID(c.Args().Get(0))
				if err != nil {
					return err
				}
				return w.UpdateRenderSurface(id, c.Args().Get(1), c.Bool("resize"))
			}),
		},
		{
			Name:      "export",
			Usage:     "Export a surface to an image",
			ArgsUsage: "ID FILE",
			Action: withWriter(2, func(c *cli.Context, w *datsurface.Writer) error {
				id, err := parseID(c.Args().Get(0))
				if err != nil {
					return err
				}
				return w.SaveRenderSurfaceToImage(id, c.Args().Get(1))
			}),
		},
		{
			Name:      "palette",
			Usage:     "Add a palette from a paletted image",
			ArgsUsage: "ID FILE",
			Action: withWriter(2, func(c *cli.Context, w *datsurface.Writer) error {
				id, err := parseID(c.Args().Get(0))
				if err != nil {
					return err
				}
				return w.AddPaletteFromImage(id, c.Args().Get(1))
			}),
		},
		{
			Name:      "set-palette",
			Usage:     "Point a surface at a palette",
			ArgsUsage: "ID PALETTE",
			Action: withWriter(2, func(c *cli.Context, w *datsurface.Writer) error {
				id, err := parseID(c.Args().Get(0))
				if err != nil {
					return err
				}
				palette, err := parseID(c.Args().Get(1))
				if err != nil {
					return err
				}
				return w.SetSurfacePalette(id, palette)
			}),
		},
		{
			Name:      "import",
			Usage:     "Add every image in a directory",
			ArgsUsage: "DIRECTORY",
			Flags: []cli.Flag{
				formatFlag,
				&cli.StringFlag{
					Name:  "first",
					Value: "0x06000000",
					Usage: "id of the first surface",
				},
			},
			Action: withWriter(1, func(c *cli.Context, w *datsurface.Writer) error {
				first, err := parseID(c.String("first"))
				if err != nil {
					return err
				}
				format, err := surface.ParseFormat(c.String("format"))
				if err != nil {
					return err
				}
				count, err := w.ImportDirectory(c.Args().First(), first, format)
				if err != nil {
					return err
				}
				fmt.Printf("Imported %d surfaces\n", count)
				return nil
			}),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
