package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/analogj/go-util/utils"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/quillium/papersearch/pkg/api"
	"github.com/quillium/papersearch/pkg/index"
	"github.com/quillium/papersearch/pkg/query"
	"github.com/quillium/papersearch/pkg/schema"
	"github.com/quillium/papersearch/pkg/version"
)

var goos string
var goarch string

func main() {
	app := &cli.App{
		Name:     "papersearch-api",
		Usage:    "Query API for the papersearch document index",
		Version:  version.VERSION,
		Compiled: time.Now(),
		Authors: []cli.Author{
			cli.Author{
				Name: "Quillium",
			},
		},
		Before: func(c *cli.Context) error {

			_ = godotenv.Load()

			capsuleUrl := "quillium/papersearch:api"

			versionInfo := fmt.Sprintf("%s.%s-%s", goos, goarch, version.VERSION)

			subtitle := capsuleUrl + utils.LeftPad2Len(versionInfo, " ", 53-len(capsuleUrl))

			fmt.Fprintf(c.App.Writer, fmt.Sprintf(utils.StripIndent(
				`
			 ____   __   ____  ____  ____  ____  ____   __   ____   ___  _  _
			(  _ \ / _\ (  _ \(  __)(  _ \/ ___)(  __) / _\ (  _ \ / __)/ )( \
			 ) __//    \ ) __/ ) _)  )   /\___ \ ) _) /    \ )   /( (__ ) __ (
			(__)  \_/\_/(__)  (____)(__\_)(____/(____)\_/\_/(__\_) \___)\_)(_/
			%s
			`), subtitle))
			return nil
		},

		Commands: []cli.Command{
			{
				Name:  "start",
				Usage: "Start the papersearch query API server",
				Action: func(c *cli.Context) error {
					logger := logrus.New()
					if c.Bool("debug") {
						logger.SetLevel(logrus.DebugLevel)
					}
					entry := logrus.NewEntry(logger)

					registry, err := schema.Load(entry)
					if err != nil {
						return err
					}

					session, err := index.NewSession(entry, registry,
						c.String("es-endpoint"),
						c.String("es-index"),
						c.String("es-username"),
						c.String("es-password"),
						"")
					if err != nil {
						return err
					}

					server := api.NewServer(entry, session, query.NewBuilder(entry, registry))

					entry.Infof("listening on %s", c.String("listen-addr"))
					return http.ListenAndServe(c.String("listen-addr"), server.Router())
				},

				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:   "listen-addr",
						Usage:  "The address and port to serve on",
						Value:  ":8080",
						EnvVar: "PAPERSEARCH_LISTEN_ADDR",
					},
					&cli.StringFlag{
						Name:   "es-endpoint",
						Usage:  "The search engine endpoint",
						Value:  "http://localhost:9200",
						EnvVar: "PAPERSEARCH_ES_ENDPOINT",
					},
					&cli.StringFlag{
						Name:   "es-index",
						Usage:  "The document index name",
						Value:  "papers",
						EnvVar: "PAPERSEARCH_ES_INDEX",
					},
					&cli.StringFlag{
						Name:   "es-username",
						Usage:  "The search engine username",
						EnvVar: "PAPERSEARCH_ES_USERNAME",
					},
					&cli.StringFlag{
						Name:   "es-password",
						Usage:  "The search engine password",
						EnvVar: "PAPERSEARCH_ES_PASSWORD",
					},
					&cli.BoolFlag{
						Name:  "debug",
						Usage: "Enable debug logging",
					},
				},
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(color.HiRedString("ERROR: %v", err))
	}
}
