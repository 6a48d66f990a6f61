package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tamilsm/TranscriptAnalysis/internal/ingest"
)

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Submit transcripts for annotation",
	Long: `Submit transcripts for annotation.

Examples:
  tca ingest --file calls.tsv
  tca ingest --file call.pdf --id call-0457
  tca ingest --text "Agent: Hello...\nCustomer: ..." --id call-0458 --date 2026-08-12
  tca ingest --file calls.tsv --upsert`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		text, _ := cmd.Flags().GetString("text")
		id, _ := cmd.Flags().GetString("id")
		userID, _ := cmd.Flags().GetString("user")
		date, _ := cmd.Flags().GetString("date")
		upsert, _ := cmd.Flags().GetBool("upsert")

		if text == "" && file == "" {
			return fmt.Errorf("one of --text or --file is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		submit := func(req map[string]any) error {
			resp, err := client.post(cmd.Context(), "/transcripts", req)
			if err != nil {
				return err
			}
			var result map[string]string
			if err := decodeJSON(resp, &result); err != nil {
				return err
			}
			printSuccess("Queued transcript %s", result["id"])
			return nil
		}

		if text != "" {
			return submit(map[string]any{
				"conversation_id": id,
				"user_id":         userID,
				"date":            date,
				"content":         text,
				"upsert":          upsert,
			})
		}

		switch strings.ToLower(filepath.Ext(file)) {
		case ".tsv":
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("opening file: %w", err)
			}
			defer f.Close()

			records, err := ingest.ParseTSV(f)
			if err != nil {
				return fmt.Errorf("parsing TSV: %w", err)
			}
			printStep("Submitting %d transcripts from %s...", len(records), file)
			for _, rec := range records {
				if err := submit(map[string]any{
					"conversation_id": rec.ConversationID,
					"user_id":         rec.UserID,
					"date":            rec.Date,
					"time":            rec.Time,
					"content":         rec.Transcript,
					"upsert":          upsert,
				}); err != nil {
					printError("transcript %s: %v", rec.ConversationID, err)
				}
			}
			return nil

		case ".pdf":
			content, err := ingest.ExtractPDFText(file)
			if err != nil {
				return fmt.Errorf("extracting PDF text: %w", err)
			}
			return submit(map[string]any{
				"conversation_id": id,
				"user_id":         userID,
				"date":            date,
				"content":         content,
				"upsert":          upsert,
			})

		case ".html", ".htm":
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("opening file: %w", err)
			}
			defer f.Close()

			content, err := ingest.ExtractHTMLText(f)
			if err != nil {
				return fmt.Errorf("extracting HTML text: %w", err)
			}
			return submit(map[string]any{
				"conversation_id": id,
				"user_id":         userID,
				"date":            date,
				"content":         content,
				"upsert":          upsert,
			})

		default:
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			return submit(map[string]any{
				"conversation_id": id,
				"user_id":         userID,
				"date":            date,
				"content":         string(data),
				"upsert":          upsert,
			})
		}
	},
}

func init() {
	ingestCmd.Flags().String("file", "", "transcript file (.tsv batch, .pdf, .html, or plain text)")
	ingestCmd.Flags().String("text", "", "raw transcript text")
	ingestCmd.Flags().String("id", "", "conversation id (generated when omitted)")
	ingestCmd.Flags().String("user", "", "customer identifier")
	ingestCmd.Flags().String("date", "", "call date, YYYY-MM-DD")
	ingestCmd.Flags().Bool("upsert", false, "overwrite an existing conversation on re-annotation")
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a natural-language question about analyzed conversations",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		showSQL, _ := cmd.Flags().GetBool("show-sql")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/ask", map[string]string{"question": question})
		if err != nil {
			return err
		}

		var answer struct {
			Route  string `json:"route"`
			SQL    string `json:"sql"`
			Result *struct {
				RowCount     int `json:"row_count"`
				ReturnedRows int `json:"returned_rows"`
			} `json:"result"`
			Summary string `json:"summary"`
		}
		if err := decodeJSON(resp, &answer); err != nil {
			return err
		}

		if showSQL && answer.SQL != "" {
			fmt.Printf("%s %s\n", colorize(colorBold, "SQL:"), answer.SQL)
			if answer.Result != nil {
				fmt.Printf("%s %d matching, %d returned\n",
					colorize(colorBold, "Rows:"), answer.Result.RowCount, answer.Result.ReturnedRows)
			}
			fmt.Println()
		}
		fmt.Println(answer.Summary)
		return nil
	},
}

func init() {
	askCmd.Flags().Bool("show-sql", false, "print the SQL statement the agent ran")
}

// --- conversations ---

var conversationsCmd = &cobra.Command{
	Use:   "conversations",
	Short: "Browse analyzed conversations",
}

var conversationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/conversations?limit=%d", limit))
		if err != nil {
			return err
		}

		var conversations []struct {
			ConversationID   string   `json:"conversation_id"`
			Date             string   `json:"date"`
			Sentiment        string   `json:"customer_sentiment"`
			DominantEmotion  string   `json:"dominant_customer_emotion"`
			AngryTranscript  bool     `json:"angry_transcript"`
			ResolutionStatus string   `json:"resolution_status"`
			Topics           []string `json:"topics"`
		}
		if err := decodeJSON(resp, &conversations); err != nil {
			return err
		}

		if len(conversations) == 0 {
			fmt.Println("No conversations found.")
			return nil
		}

		for _, c := range conversations {
			marker := " "
			if c.AngryTranscript {
				marker = colorize(colorRed, "!")
			}
			fmt.Printf("%s %s  %s  %-8s  %-12s  %s\n",
				marker,
				colorize(colorCyan, c.ConversationID),
				c.Date,
				c.Sentiment,
				c.DominantEmotion,
				strings.Join(c.Topics, ", "),
			)
		}
		return nil
	},
}

var conversationsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single conversation record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/conversations/"+args[0])
		if err != nil {
			return err
		}

		var conversation any
		if err := decodeJSON(resp, &conversation); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(conversation)
	},
}

func init() {
	conversationsListCmd.Flags().Int("limit", 20, "maximum number of conversations to list")
	conversationsCmd.AddCommand(conversationsListCmd)
	conversationsCmd.AddCommand(conversationsShowCmd)
}

// --- transcripts ---

var transcriptsCmd = &cobra.Command{
	Use:   "transcripts",
	Short: "Inspect submitted transcripts",
}

var transcriptsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a transcript and its annotation status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/transcripts/"+args[0])
		if err != nil {
			return err
		}

		var t struct {
			ID        string `json:"id"`
			Status    string `json:"status"`
			LastError string `json:"last_error"`
			Date      string `json:"date"`
		}
		if err := decodeJSON(resp, &t); err != nil {
			return err
		}

		printStatus("Transcript", "%s", t.ID)
		printStatus("Status", "%s", t.Status)
		if t.Date != "" {
			printStatus("Date", "%s", t.Date)
		}
		if t.LastError != "" {
			printStatus("Last error", "%s", t.LastError)
		}
		return nil
	},
}

func init() {
	transcriptsCmd.AddCommand(transcriptsShowCmd)
}
