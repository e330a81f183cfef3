package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/pretty"
	"github.com/urfave/cli/v2"

	"example.com/recordetl/internal/cloud"
	"example.com/recordetl/internal/types"
)

func pipelineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "key", Usage: "Object key in the source bucket", Required: true},
		&cli.StringFlag{Name: "file", Usage: "Read content from this file (- for stdin)"},
		&cli.StringFlag{Name: "content", Usage: "Inline content, used when --file is not given"},
		&cli.StringFlag{Name: "bucket", Usage: "Source bucket; the server default when empty"},
		&cli.StringFlag{Name: "content-type", Usage: "Content type of the uploaded object"},
		&cli.StringSliceFlag{Name: "metadata", Usage: "Object metadata as name=value, repeatable"},
	}
}

func readContent(c *cli.Context) (string, error) {
	file := c.String("file")
	switch file {
	case "":
		return c.String("content"), nil
	case "-":
		b, err := io.ReadAll(c.App.Reader)
		return string(b), err
	default:
		b, err := os.ReadFile(file)
		return string(b), err
	}
}

func pipelineRequest(c *cli.Context) (types.PipelineRequest, error) {
	content, err := readContent(c)
	if err != nil {
		return types.PipelineRequest{}, err
	}
	req := types.PipelineRequest{
		Bucket:      c.String("bucket"),
		Key:         c.String("key"),
		Content:     content,
		ContentType: c.String("content-type"),
	}
	for _, kv := range c.StringSlice("metadata") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return req, fmt.Errorf("metadata %q is not name=value", kv)
		}
		if req.Metadata == nil {
			req.Metadata = map[string]string{}
		}
		req.Metadata[name] = value
	}
	if c.IsSet("output-bucket") {
		req.OutputBucket = c.String("output-bucket")
	}
	return req, nil
}

func runID(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("%s takes exactly one job run id", c.Command.Name)
	}
	return c.Args().First(), nil
}

func printJSON(c *cli.Context, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(pretty.Pretty(b))
	return err
}

func newApp() *cli.App {
	var client *cloud.APIClient

	return &cli.App{
		Name:  "etlctl",
		Usage: "Upload records and follow transform runs through the ETL API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api",
				Usage:   "Base URL of the ETL API",
				Value:   "http://localhost:8080",
				EnvVars: []string{"ETL_API_URL"},
			},
		},
		Before: func(c *cli.Context) error {
			client = cloud.NewAPIClient(c.String("api"), nil)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "upload",
				Usage: "Land an object in the source bucket",
				Flags: pipelineFlags(),
				Action: func(c *cli.Context) error {
					req, err := pipelineRequest(c)
					if err != nil {
						return err
					}
					resp, err := client.Upload(c.Context, req)
					if err != nil {
						return err
					}
					return printJSON(c, resp)
				},
			},
			{
				Name:  "run",
				Usage: "Land an object and let the bucket notification start a transform run",
				Flags: append(pipelineFlags(),
					&cli.StringFlag{Name: "output-bucket", Usage: "Bucket for the transformed output"},
				),
				Action: func(c *cli.Context) error {
					req, err := pipelineRequest(c)
					if err != nil {
						return err
					}
					resp, err := client.Run(c.Context, req)
					if err != nil {
						return err
					}
					return printJSON(c, resp)
				},
			},
			{
				Name:      "job",
				Usage:     "Show a Glue job run",
				ArgsUsage: "JOB_RUN_ID",
				Action: func(c *cli.Context) error {
					id, err := runID(c)
					if err != nil {
						return err
					}
					run, err := client.JobRun(c.Context, id)
					if err != nil {
						return err
					}
					return printJSON(c, run)
				},
			},
			{
				Name:      "run-status",
				Usage:     "Show the ledger record of a job run",
				ArgsUsage: "JOB_RUN_ID",
				Action: func(c *cli.Context) error {
					id, err := runID(c)
					if err != nil {
						return err
					}
					rec, err := client.RunRecord(c.Context, id)
					if err != nil {
						return err
					}
					return printJSON(c, rec)
				},
			},
		},
	}
}

func main() {
	_ = godotenv.Load()
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "etlctl:", err)
		os.Exit(1)
	}
}
