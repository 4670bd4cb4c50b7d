package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"voicekeep/internal/config"
	"voicekeep/internal/speaker"
)

// Direct operator commands run in-process against this machine's
// filesystem, or proxy to a remote voicekeepd when --server-url (or a
// persisted server_url) is set — spec.md §6, teacher's client.go split.

var speakerCmd = &cobra.Command{
	Use:   "speaker",
	Short: "Speaker identity operations",
}

var labelSpeakerCmd = &cobra.Command{
	Use:   "label <transcript-id> <speaker-id> <name>",
	Short: "Label a speaker within a transcript",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		transcriptID, speakerID, name := args[0], args[1], args[2]
		if url := resolveServerURL(); url != "" {
			body := map[string]string{"transcript_id": transcriptID, "speaker_id": speakerID, "name": name}
			mustRun(newAPIClient(url).post(cmd.Context(), "/api/v1/speakers/label", body))
			return
		}
		cfg := config.Load()
		svc, err := buildSpeakerService(cfg)
		mustRun(err)
		mustRun(svc.LabelSpeaker(cmd.Context(), transcriptID, speakerID, name))
		fmt.Println("speaker labeled.")
	},
}

var candidateCmd = &cobra.Command{
	Use:   "candidate",
	Short: "Speaker candidate operations",
}

var approveCandidateCmd = &cobra.Command{
	Use:   "approve <candidate-id> <name>",
	Short: "Approve a speaker candidate into a named profile",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		candidateID, name := args[0], args[1]
		if url := resolveServerURL(); url != "" {
			mustRun(newAPIClient(url).post(cmd.Context(), "/api/v1/candidates/"+candidateID+"/approve", map[string]string{"name": name}))
			return
		}
		cfg := config.Load()
		svc, err := buildSpeakerService(cfg)
		mustRun(err)
		mustRun(svc.ApproveCandidate(cmd.Context(), candidateID, name))
		fmt.Println("candidate approved.")
	},
}

var rejectCandidateCmd = &cobra.Command{
	Use:   "reject <candidate-id>",
	Short: "Reject a speaker candidate",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		candidateID := args[0]
		if url := resolveServerURL(); url != "" {
			mustRun(newAPIClient(url).post(cmd.Context(), "/api/v1/candidates/"+candidateID+"/reject", nil))
			return
		}
		cfg := config.Load()
		svc, err := buildSpeakerService(cfg)
		mustRun(err)
		mustRun(svc.RejectCandidate(cmd.Context(), candidateID))
		fmt.Println("candidate rejected.")
	},
}

var (
	mergeTargetType    string
	mergeTargetName    string
	mergeProfileName   string
)

var mergeCandidatesCmd = &cobra.Command{
	Use:   "merge <candidate-id> [candidate-id...]",
	Short: "Merge two or more speaker candidates into one profile",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		target := map[string]string{
			"type":         mergeTargetType,
			"name":         mergeTargetName,
			"profile_name": mergeProfileName,
		}
		if url := resolveServerURL(); url != "" {
			body := map[string]any{"candidate_ids": args, "target": target}
			mustRun(newAPIClient(url).post(cmd.Context(), "/api/v1/candidates/merge", body))
			return
		}
		cfg := config.Load()
		svc, err := buildSpeakerService(cfg)
		mustRun(err)
		mustRun(svc.MergeCandidates(cmd.Context(), args, speaker.MergeTarget{
			Type:        mergeTargetType,
			Name:        mergeTargetName,
			ProfileName: mergeProfileName,
		}))
		fmt.Println("candidates merged.")
	},
}

func init() {
	mergeCandidatesCmd.Flags().StringVar(&mergeTargetType, "target-type", "new", `merge target: "new" or "existing"`)
	mergeCandidatesCmd.Flags().StringVar(&mergeTargetName, "name", "", "name for a new profile (target-type=new)")
	mergeCandidatesCmd.Flags().StringVar(&mergeProfileName, "profile", "", "existing profile name (target-type=existing)")
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Speaker profile operations",
}

var renameProfileCmd = &cobra.Command{
	Use:   "rename <old-name> <new-name>",
	Short: "Rename a speaker profile",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		oldName, newName := args[0], args[1]
		if url := resolveServerURL(); url != "" {
			mustRun(newAPIClient(url).post(cmd.Context(), "/api/v1/profiles/"+oldName+"/rename", map[string]string{"new_name": newName}))
			return
		}
		cfg := config.Load()
		svc, err := buildSpeakerService(cfg)
		mustRun(err)
		mustRun(svc.RenameProfile(cmd.Context(), oldName, newName))
		fmt.Println("profile renamed.")
	},
}

var deleteProfileCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a speaker profile",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := args[0]
		if url := resolveServerURL(); url != "" {
			mustRun(newAPIClient(url).delete(cmd.Context(), "/api/v1/profiles/"+name))
			return
		}
		cfg := config.Load()
		svc, err := buildSpeakerService(cfg)
		mustRun(err)
		mustRun(svc.DeleteProfile(cmd.Context(), name))
		fmt.Println("profile deleted.")
	},
}

var watchfolderCmd = &cobra.Command{
	Use:   "watchfolder",
	Short: "Watch-Folder Ingester controls",
}

var pauseWatchfolderCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause watch-folder ingestion",
	Run: func(cmd *cobra.Command, args []string) {
		runWatchfolderAction(cmd.Context(), "pause")
	},
}

var resumeWatchfolderCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume watch-folder ingestion",
	Run: func(cmd *cobra.Command, args []string) {
		runWatchfolderAction(cmd.Context(), "resume")
	},
}

func runWatchfolderAction(ctx context.Context, action string) {
	if url := resolveServerURL(); url != "" {
		mustRun(newAPIClient(url).post(ctx, "/api/v1/watchfolder/"+action, nil))
		return
	}
	cfg := config.Load()
	ing, err := buildIngester(cfg)
	mustRun(err)
	if action == "pause" {
		mustRun(ing.Pause())
		fmt.Println("watch-folder paused.")
	} else {
		mustRun(ing.Resume())
		fmt.Println("watch-folder resumed.")
	}
}

func init() {
	speakerCmd.AddCommand(labelSpeakerCmd)
	candidateCmd.AddCommand(approveCandidateCmd, rejectCandidateCmd, mergeCandidatesCmd)
	profileCmd.AddCommand(renameProfileCmd, deleteProfileCmd)
	watchfolderCmd.AddCommand(pauseWatchfolderCmd, resumeWatchfolderCmd)

	rootCmd.AddCommand(speakerCmd, candidateCmd, profileCmd, watchfolderCmd)
}

func mustRun(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
