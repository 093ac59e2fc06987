package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/storyreel/storyreel/internal/assets"
	"github.com/storyreel/storyreel/internal/importer"
	"github.com/storyreel/storyreel/internal/project"
	"github.com/storyreel/storyreel/internal/scenes"
	"github.com/storyreel/storyreel/internal/storeerr"
	"github.com/storyreel/storyreel/internal/ui"
)

var sceneCmd = &cobra.Command{
	Use:     "scene",
	GroupID: "scenes",
	Short:   "Add, remove, reorder and edit scenes",
	Long: `Add, remove, reorder and edit the scenes of a project.

Scenes are referred to by id or by 1-based position as shown by
'storyreel show'.`,
}

var sceneListCmd = &cobra.Command{
	Use:   "ls <project>",
	Short: "List the scenes of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), args[0], false, func(a *app, sess *project.Session) error {
			if jsonOutput {
				return outputJSON(newProjectView(sess).Scenes)
			}
			return printScenes(sess)
		})
	},
}

var sceneAddCmd = &cobra.Command{
	Use:   "add <project> [text]",
	Short: "Append a scene",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), args[0], true, func(a *app, sess *project.Session) error {
			sc := sess.AddScene()
			if err := setSceneText(cmd, sess, sc.ID, args[1:]); err != nil {
				return err
			}
			fmt.Println(ui.Success(fmt.Sprintf("Added scene %d (%s)", len(sess.Scenes()), sc.ID)))
			return nil
		})
	},
}

var sceneInsertCmd = &cobra.Command{
	Use:   "insert <project> <position> [text]",
	Short: "Insert a scene at a 1-based position",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pos, err := parsePosition(args[1])
		if err != nil {
			return err
		}
		return withSession(cmd.Context(), args[0], true, func(a *app, sess *project.Session) error {
			sc, at := sess.InsertScene(pos)
			if err := setSceneText(cmd, sess, sc.ID, args[2:]); err != nil {
				return err
			}
			fmt.Println(ui.Success(fmt.Sprintf("Inserted scene %d (%s)", at+1, sc.ID)))
			return nil
		})
	},
}

func setSceneText(cmd *cobra.Command, sess *project.Session, id string, words []string) error {
	if len(words) > 0 {
		if _, err := sess.UpdateScene(id, scenes.FieldText, strings.Join(words, " ")); err != nil {
			return err
		}
	}
	if tr, _ := cmd.Flags().GetString("translation"); tr != "" {
		if _, err := sess.UpdateScene(id, scenes.FieldTranslation, tr); err != nil {
			return err
		}
	}
	return nil
}

var sceneRemoveCmd = &cobra.Command{
	Use:     "rm <project> <scene>",
	Aliases: []string{"delete"},
	Short:   "Delete a scene with its image and attachments",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), args[0], true, func(a *app, sess *project.Session) error {
			sc, i, err := sess.SceneAt(args[1])
			if err != nil {
				return err
			}
			if err := sess.DeleteScene(sc.ID); err != nil {
				return err
			}
			fmt.Println(ui.Success(fmt.Sprintf("Deleted scene %d", i+1)))
			return nil
		})
	},
}

var sceneMoveCmd = &cobra.Command{
	Use:   "mv <project> <scene> <up|down>",
	Short: "Move a scene one position up or down",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		var delta int
		switch strings.ToLower(args[2]) {
		case "up", "-1":
			delta = -1
		case "down", "+1", "1":
			delta = 1
		default:
			return storeerr.Validation("move scene", "direction must be up or down, got %q", args[2])
		}
		return withSession(cmd.Context(), args[0], true, func(a *app, sess *project.Session) error {
			sc, _, err := sess.SceneAt(args[1])
			if err != nil {
				return err
			}
			moved, err := sess.MoveScene(sc.ID, delta)
			if err != nil {
				return err
			}
			if !moved {
				fmt.Println(ui.RenderMuted("Already at the edge; nothing moved."))
				return nil
			}
			_, i, _ := sess.Scene(sc.ID)
			fmt.Println(ui.Success(fmt.Sprintf("Scene is now at position %d", i+1)))
			return nil
		})
	},
}

var sceneMoveToCmd = &cobra.Command{
	Use:   "move-to <project> <scene> <position>",
	Short: "Move a scene to a 1-based position",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := parsePosition(args[2])
		if err != nil {
			return err
		}
		return withSession(cmd.Context(), args[0], true, func(a *app, sess *project.Session) error {
			sc, _, err := sess.SceneAt(args[1])
			if err != nil {
				return err
			}
			to, err := sess.MoveSceneTo(sc.ID, target)
			if err != nil {
				return err
			}
			fmt.Println(ui.Success(fmt.Sprintf("Scene is now at position %d", to+1)))
			return nil
		})
	},
}

var sceneSetCmd = &cobra.Command{
	Use:   "set <project> <scene> <text|translation|rating> <value>",
	Short: "Set a scene field; rating takes 1-5 or none",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		field := args[2]
		switch field {
		case scenes.FieldText, scenes.FieldTranslation, scenes.FieldRating:
		default:
			return storeerr.Validation("set scene", "unknown field %q (want text, translation or rating)", field)
		}
		return withSession(cmd.Context(), args[0], true, func(a *app, sess *project.Session) error {
			sc, i, err := sess.SceneAt(args[1])
			if err != nil {
				return err
			}
			changed, err := sess.UpdateScene(sc.ID, field, strings.Join(args[3:], " "))
			if err != nil {
				return err
			}
			if !changed {
				fmt.Println(ui.RenderMuted("Nothing changed."))
				return nil
			}
			fmt.Println(ui.Success(fmt.Sprintf("Updated %s of scene %d", field, i+1)))
			return nil
		})
	},
}

var sceneImportCmd = &cobra.Command{
	Use:   "import <project> <file>",
	Short: "Append scenes from a JSONL or plain-text file",
	Long: `Append one scene per entry of file.

JSONL files (.jsonl, .ndjson) hold one object per line:
  {"text": "...", "translation": "...", "rating": 4}

Any other file is read as plain text; paragraphs separated by blank lines
become scenes. The whole file is validated before anything is added.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		opts := importer.Options{Path: args[1], Format: importer.Format(format), DryRun: dryRun}

		return withSession(cmd.Context(), args[0], !dryRun, func(a *app, sess *project.Session) error {
			res, err := importer.Import(cmd.Context(), sess, opts)
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(res)
			}
			if dryRun {
				fmt.Printf("%s %d scenes would be added\n", ui.RenderAccent("→"), res.Parsed)
				return nil
			}
			fmt.Println(ui.Success(fmt.Sprintf("Imported %d scenes", res.Added)))
			return nil
		})
	},
}

func parsePosition(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, storeerr.Validation("position", "position must be a number from 1, got %q", s)
	}
	return n - 1, nil
}

var imageCmd = &cobra.Command{
	Use:     "image",
	GroupID: "scenes",
	Short:   "Set or remove the primary image of a scene",
}

var imageSetCmd = &cobra.Command{
	Use:   "set <project> <scene> <file>",
	Short: "Copy an image file into the project as the scene's image",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), args[0], true, func(a *app, sess *project.Session) error {
			sc, i, err := sess.SceneAt(args[1])
			if err != nil {
				return err
			}
			if err := sess.AssignImage(sc.ID, assets.FileFromPath(args[2])); err != nil {
				return err
			}
			fmt.Println(ui.Success(fmt.Sprintf("Image set on scene %d", i+1)))
			return nil
		})
	},
}

var imageRemoveCmd = &cobra.Command{
	Use:   "rm <project> <scene>",
	Short: "Delete the scene's image",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), args[0], true, func(a *app, sess *project.Session) error {
			sc, i, err := sess.SceneAt(args[1])
			if err != nil {
				return err
			}
			if !sc.HasImage() {
				fmt.Println(ui.RenderMuted("Scene has no image."))
				return nil
			}
			if err := sess.RemoveImage(sc.ID); err != nil {
				return err
			}
			fmt.Println(ui.Success(fmt.Sprintf("Image removed from scene %d", i+1)))
			return nil
		})
	},
}

var attachCmd = &cobra.Command{
	Use:     "attach",
	GroupID: "scenes",
	Short:   "Manage scene attachments (image, video, audio, text; up to 8 per scene)",
}

var attachAddCmd = &cobra.Command{
	Use:   "add <project> <scene> <file>...",
	Short: "Copy files into the project as scene attachments",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), args[0], true, func(a *app, sess *project.Session) error {
			sc, i, err := sess.SceneAt(args[1])
			if err != nil {
				return err
			}
			files := make([]assets.File, 0, len(args)-2)
			for _, path := range args[2:] {
				files = append(files, assets.FileFromPath(path))
			}
			n, err := sess.AddAttachments(sc.ID, files)
			if err != nil {
				return err
			}
			fmt.Println(ui.Success(fmt.Sprintf("Attached %d file(s) to scene %d", n, i+1)))
			if n < len(files) {
				fmt.Println(ui.Warning(fmt.Sprintf("%d file(s) skipped: a scene holds at most %d attachments", len(files)-n, assets.MaxAttachments)))
			}
			return nil
		})
	},
}

var attachRemoveCmd = &cobra.Command{
	Use:   "rm <project> <scene> <filename>",
	Short: "Delete one attachment",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), args[0], true, func(a *app, sess *project.Session) error {
			sc, _, err := sess.SceneAt(args[1])
			if err != nil {
				return err
			}
			if err := sess.DeleteAttachment(sc.ID, args[2]); err != nil {
				return err
			}
			fmt.Println(ui.Success("Deleted " + args[2]))
			return nil
		})
	},
}

var attachListCmd = &cobra.Command{
	Use:   "ls <project> <scene>",
	Short: "List the attachments of a scene",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), args[0], false, func(a *app, sess *project.Session) error {
			sc, _, err := sess.SceneAt(args[1])
			if err != nil {
				return err
			}
			if jsonOutput {
				return outputJSON(sc.Attachments)
			}
			if len(sc.Attachments) == 0 {
				fmt.Println(ui.RenderMuted("No attachments."))
				return nil
			}
			t := ui.NewTable("File", "Original", "Type", "Size", "Added")
			for _, att := range sc.Attachments {
				t.Row(att.Filename, att.OriginalName, att.Type, strconv.FormatInt(att.Size, 10), formatTime(att.AddedAt))
			}
			return t.Render(os.Stdout)
		})
	},
}

var transitionCmd = &cobra.Command{
	Use:     "transition",
	GroupID: "scenes",
	Short:   "Annotate the cut between two scenes",
}

var transitionSetCmd = &cobra.Command{
	Use:   "set <project> <after-position> [description]",
	Short: "Set the note after a scene; an empty description clears it",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		after, err := parsePosition(args[1])
		if err != nil {
			return err
		}
		return withSession(cmd.Context(), args[0], true, func(a *app, sess *project.Session) error {
			changed, err := sess.SetTransition(after, strings.Join(args[2:], " "))
			if err != nil {
				return err
			}
			if !changed {
				fmt.Println(ui.RenderMuted("Nothing changed."))
				return nil
			}
			fmt.Println(ui.Success(fmt.Sprintf("Transition after scene %d updated", after+1)))
			return nil
		})
	},
}

var transitionListCmd = &cobra.Command{
	Use:   "ls <project>",
	Short: "List transition notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSession(cmd.Context(), args[0], false, func(a *app, sess *project.Session) error {
			ts := sess.Transitions()
			if jsonOutput {
				return outputJSON(newProjectView(sess).Transitions)
			}
			if len(ts) == 0 {
				fmt.Println(ui.RenderMuted("No transitions."))
				return nil
			}
			t := ui.NewTable("Between", "Description", "Updated")
			for _, tr := range ts {
				t.Row(fmt.Sprintf("%d → %d", tr.SceneIndex+1, tr.SceneIndex+2), tr.Description, formatTime(tr.UpdatedAt))
			}
			return t.Render(os.Stdout)
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{sceneAddCmd, sceneInsertCmd} {
		c.Flags().String("translation", "", "translation text")
	}
	sceneImportCmd.Flags().String("format", "", "jsonl or text (default: by extension)")
	sceneImportCmd.Flags().Bool("dry-run", false, "validate without adding scenes")

	sceneCmd.AddCommand(sceneListCmd, sceneAddCmd, sceneInsertCmd, sceneRemoveCmd, sceneMoveCmd, sceneMoveToCmd, sceneSetCmd, sceneImportCmd)
	imageCmd.AddCommand(imageSetCmd, imageRemoveCmd)
	attachCmd.AddCommand(attachAddCmd, attachRemoveCmd, attachListCmd)
	transitionCmd.AddCommand(transitionSetCmd, transitionListCmd)
	rootCmd.AddCommand(sceneCmd, imageCmd, attachCmd, transitionCmd)
}
