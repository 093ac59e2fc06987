package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/storyreel/storyreel/internal/project"
	"github.com/storyreel/storyreel/internal/schema"
	"github.com/storyreel/storyreel/internal/storeerr"
	"github.com/storyreel/storyreel/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	GroupID: "projects",
	Short:   "List projects, most recently updated first",
	Long: `List projects, most recently updated first.

Examples:
  storyreel list
  storyreel list --query train
  storyreel list --since "last week"
  storyreel list --since 2025-06-01`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		sinceText, _ := cmd.Flags().GetString("since")
		since, err := parseSince(sinceText, time.Now())
		if err != nil {
			return err
		}

		a, err := openApp(cmd.Context(), openOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		projects := a.store.List()
		if query != "" || !since.IsZero() {
			if projects, err = a.store.Search(cmd.Context(), query, since); err != nil {
				return err
			}
		}
		if jsonOutput {
			if projects == nil {
				projects = []schema.ProjectSummary{}
			}
			return outputJSON(projects)
		}
		return printProjects(os.Stdout, projects)
	},
}

var newCmd = &cobra.Command{
	Use:     "new <name>",
	GroupID: "projects",
	Short:   "Create an empty project",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), openOptions{mutating: true})
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.store.Create(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(p)
		}
		fmt.Println(ui.Success("Created " + summaryLine(p)))
		fmt.Printf("   %s\n", a.ws.ProjectDir(p.Slug))
		return nil
	},
}

// projectView is the shape printed by show.
type projectView struct {
	ID             string           `json:"id" yaml:"id"`
	Slug           string           `json:"slug" yaml:"slug"`
	ProjectName    string           `json:"projectName" yaml:"projectName"`
	VideoGenerator string           `json:"videoGenerator,omitempty" yaml:"videoGenerator,omitempty"`
	Notes          string           `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt      time.Time        `json:"createdAt" yaml:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt" yaml:"updatedAt"`
	Scenes         []sceneView      `json:"scenes" yaml:"scenes"`
	Transitions    []transitionView `json:"transitions,omitempty" yaml:"transitions,omitempty"`
}

type sceneView struct {
	Position    int      `json:"position" yaml:"position"`
	ID          string   `json:"id" yaml:"id"`
	Text        string   `json:"text,omitempty" yaml:"text,omitempty"`
	Translation string   `json:"translation,omitempty" yaml:"translation,omitempty"`
	Rating      *int     `json:"rating,omitempty" yaml:"rating,omitempty"`
	Image       string   `json:"image,omitempty" yaml:"image,omitempty"`
	Attachments []string `json:"attachments,omitempty" yaml:"attachments,omitempty"`
}

type transitionView struct {
	After       int    `json:"after" yaml:"after"`
	Description string `json:"description" yaml:"description"`
}

func newProjectView(sess *project.Session) projectView {
	rec := sess.Record()
	v := projectView{
		ID:             rec.ID,
		Slug:           sess.Slug,
		ProjectName:    rec.ProjectName,
		VideoGenerator: rec.VideoGenerator,
		Notes:          rec.Notes,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
		Scenes:         make([]sceneView, 0, len(rec.Prompts)),
	}
	for i, s := range rec.Prompts {
		sv := sceneView{
			Position:    i + 1,
			ID:          s.ID,
			Text:        s.Text,
			Translation: s.Translation,
			Rating:      s.Rating,
			Image:       s.ImageOriginalName,
		}
		for _, a := range s.Attachments {
			sv.Attachments = append(sv.Attachments, a.Filename)
		}
		v.Scenes = append(v.Scenes, sv)
	}
	for _, t := range rec.Transitions {
		v.Transitions = append(v.Transitions, transitionView{After: t.SceneIndex + 1, Description: t.Description})
	}
	return v
}

var showCmd = &cobra.Command{
	Use:     "show <project>",
	GroupID: "projects",
	Short:   "Show a project and its scenes",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asYAML, _ := cmd.Flags().GetBool("yaml")
		return withSession(cmd.Context(), args[0], false, func(a *app, sess *project.Session) error {
			v := newProjectView(sess)
			switch {
			case jsonOutput:
				return outputJSON(v)
			case asYAML:
				enc := yaml.NewEncoder(os.Stdout)
				enc.SetIndent(2)
				if err := enc.Encode(v); err != nil {
					return err
				}
				return enc.Close()
			}

			fmt.Printf("%s %s\n", ui.RenderHeader(v.ProjectName), ui.RenderMuted(v.Slug+" · "+v.ID))
			if v.VideoGenerator != "" {
				fmt.Printf("   Generator: %s\n", v.VideoGenerator)
			}
			if v.Notes != "" {
				fmt.Printf("   Notes:     %s\n", truncate(v.Notes, 60))
			}
			fmt.Printf("   Updated:   %s\n\n", formatTime(v.UpdatedAt))
			return printScenes(sess)
		})
	},
}

func printScenes(sess *project.Session) error {
	scenes := sess.Scenes()
	if len(scenes) == 0 {
		fmt.Println(ui.RenderMuted("No scenes."))
		return nil
	}
	width := ui.Width(100) - 40
	if width < 20 {
		width = 20
	}
	t := ui.NewTable("#", "Text", "Rating", "Media", "ID")
	for i, s := range scenes {
		rating := "-"
		if s.Rating != nil {
			rating = strings.Repeat("★", *s.Rating)
		}
		media := ""
		if s.HasImage() {
			media = "img"
		}
		if n := len(s.Attachments); n > 0 {
			media = strings.TrimSpace(fmt.Sprintf("%s +%d", media, n))
		}
		t.Row(fmt.Sprint(i+1), truncate(s.Text, width), rating, media, ui.RenderMuted(s.ID))
		if tr, ok := sess.Transition(i); ok {
			t.Row("", ui.RenderAccent("→ "+truncate(tr.Description, width)))
		}
	}
	return t.Render(os.Stdout)
}

var renameCmd = &cobra.Command{
	Use:     "rename <project> <name>",
	GroupID: "projects",
	Short:   "Rename a project (its directory keeps the original slug)",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setProjectField(cmd, args[0], project.FieldProjectName, strings.Join(args[1:], " "))
	},
}

var projectFieldNames = map[string]string{
	"name":      project.FieldProjectName,
	"generator": project.FieldVideoGenerator,
	"notes":     project.FieldNotes,
}

var setCmd = &cobra.Command{
	Use:     "set <project> <name|generator|notes> <value>",
	GroupID: "projects",
	Short:   "Set a project field",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		field, ok := projectFieldNames[args[1]]
		if !ok {
			return storeerr.Validation("set", "unknown field %q (want name, generator or notes)", args[1])
		}
		return setProjectField(cmd, args[0], field, strings.Join(args[2:], " "))
	},
}

func setProjectField(cmd *cobra.Command, ref, field, value string) error {
	return withSession(cmd.Context(), ref, true, func(a *app, sess *project.Session) error {
		changed, err := sess.UpdateProject(field, value)
		if err != nil {
			return err
		}
		if !changed {
			fmt.Println(ui.RenderMuted("Nothing changed."))
			return nil
		}
		fmt.Println(ui.Success("Updated " + sess.Record().ProjectName))
		return nil
	})
}

var duplicateCmd = &cobra.Command{
	Use:     "duplicate <project> <new-name>",
	Aliases: []string{"dup"},
	GroupID: "projects",
	Short:   "Copy a project with its scenes, images and attachments",
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), openOptions{mutating: true})
		if err != nil {
			return err
		}
		defer a.Close()

		src, err := a.store.Resolve(args[0])
		if err != nil {
			return err
		}
		p, err := a.store.Duplicate(cmd.Context(), src.ID, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		if jsonOutput {
			return outputJSON(p)
		}
		fmt.Println(ui.Success(fmt.Sprintf("Copied %s to %s", src.Slug, summaryLine(p))))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <project>",
	Aliases: []string{"rm"},
	GroupID: "projects",
	Short:   "Delete a project and all of its files",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")

		a, err := openApp(cmd.Context(), openOptions{mutating: true})
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.store.Resolve(args[0])
		if err != nil {
			return err
		}
		if !yes {
			ok, err := confirmDelete(p)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println(ui.RenderMuted("Cancelled."))
				return nil
			}
		}
		if err := a.store.Delete(cmd.Context(), p.ID); err != nil {
			return err
		}
		fmt.Println(ui.Success("Deleted " + summaryLine(p)))
		return nil
	},
}

func confirmDelete(p schema.ProjectSummary) (bool, error) {
	if !ui.IsTerminal(os.Stdin) {
		return false, storeerr.Validation("delete project", "refusing to delete %s without a terminal; pass --yes", p.Slug)
	}
	var ok bool
	err := huh.NewConfirm().
		Title(fmt.Sprintf("Delete %s?", summaryLine(p))).
		Description(fmt.Sprintf("%d scenes and every image and attachment will be removed.", p.PromptCount)).
		Affirmative("Delete").
		Negative("Keep").
		Value(&ok).
		Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

func init() {
	listCmd.Flags().StringP("query", "q", "", "substring of name, slug, notes or generator")
	listCmd.Flags().String("since", "", `only projects updated since, e.g. "yesterday", "last week", 2025-06-01`)
	showCmd.Flags().Bool("yaml", false, "print the project as YAML")
	deleteCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")

	rootCmd.AddCommand(listCmd, newCmd, showCmd, renameCmd, setCmd, duplicateCmd, deleteCmd)
}
