package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"sitegen/internal/streamclient"
)

type rootOptions struct {
	apiURL string
	token  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "sitegen",
		Short:         "Generate and edit websites from prompts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.apiURL, "api", envOr("SITEGEN_API_URL", "http://localhost:3001"), "API base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("SITEGEN_TOKEN"), "bearer access token")

	root.AddCommand(newGenerateCmd(opts), newEditCmd(opts), newProjectsCmd(opts))
	return root
}

func (o *rootOptions) client() (*streamclient.Client, error) {
	if o.token == "" {
		return nil, errors.New("an access token is required (--token or SITEGEN_TOKEN)")
	}
	return streamclient.NewClient(o.apiURL, o.token, nil), nil
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var (
		projectID string
		title     string
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Build a website from a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			if projectID == "" {
				project, err := client.CreateProject(ctx, args[0], title)
				if err != nil {
					return fmt.Errorf("create project: %w", err)
				}
				projectID = project.ID
				fmt.Fprintf(cmd.ErrOrStderr(), "created project %s\n", projectID)
			}

			res, err := client.Generate(ctx, projectID, args[0], progressHandlers(cmd.ErrOrStderr()))
			return finish(ctx, cmd, client, res, err, outPath)
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "existing project id (a new project is created when empty)")
	cmd.Flags().StringVar(&title, "title", "", "title for a new project")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the HTML to this file instead of stdout")
	return cmd
}

func newEditCmd(opts *rootOptions) *cobra.Command {
	var (
		projectID string
		element   string
		htmlPath  string
		outPath   string
	)

	cmd := &cobra.Command{
		Use:   "edit [change request]",
		Short: "Modify an existing website",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			in := streamclient.EditInput{Prompt: args[0], SelectedElement: element}
			if htmlPath != "" {
				raw, err := os.ReadFile(htmlPath)
				if err != nil {
					return fmt.Errorf("read html: %w", err)
				}
				in.CurrentHTML = string(raw)
			}

			res, err := client.Edit(ctx, projectID, in, progressHandlers(cmd.ErrOrStderr()))
			return finish(ctx, cmd, client, res, err, outPath)
		},
	}
	cmd.Flags().StringVar(&projectID, "project", "", "project id")
	cmd.Flags().StringVar(&element, "element", "", "outer HTML of the element to change")
	cmd.Flags().StringVar(&htmlPath, "html", "", "file holding the current HTML (the stored page is used when empty)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the HTML to this file instead of stdout")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func newProjectsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List your projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			projects, err := client.ListProjects(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, p := range projects {
				visibility := "private"
				if p.IsPublic {
					visibility = "public"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, visibility, p.UpdatedAt.Format("2006-01-02 15:04"), p.Title)
			}
			return nil
		},
	}
}

func progressHandlers(w io.Writer) streamclient.Handlers {
	received := 0
	return streamclient.Handlers{
		OnStatus: func(message string, step int) {
			fmt.Fprintf(w, "[%d/3] %s\n", step, message)
		},
		OnChunk: func(content string) {
			received += len(content)
			fmt.Fprintf(w, "\r%d bytes received", received)
		},
		OnDone: func(projectID string) {
			fmt.Fprintf(w, "\ndone: %s\n", projectID)
		},
		OnError: func(message string) {
			fmt.Fprintf(w, "\nerror: %s\n", message)
		},
	}
}

// finish writes the stored page, which is the normalized form of the streamed chunks.
func finish(ctx context.Context, cmd *cobra.Command, client *streamclient.Client, res streamclient.Result, err error, outPath string) error {
	if err != nil {
		return err
	}
	if !res.Done {
		if res.Error != "" {
			return errors.New(res.Error)
		}
		return errors.New("stream ended before the website was saved")
	}
	project, err := client.GetProject(ctx, res.ProjectID)
	if err != nil {
		return fmt.Errorf("fetch project: %w", err)
	}
	if outPath == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), project.HTMLContent+"\n")
		return err
	}
	return os.WriteFile(outPath, []byte(project.HTMLContent), 0o644)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

