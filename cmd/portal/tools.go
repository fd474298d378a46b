package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wiko-cutlery/assistant-portal/internal/model/tools"
)

func newTranslateCmd(opts *cli) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "translate <text...>",
		Short: "Translate text between English, German and French",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openAuthenticated(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Client().Translate(cmd.Context(), tools.TranslateRequest{
				Text:       strings.Join(args, " "),
				SourceLang: from,
				TargetLang: to,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.TranslatedText)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "auto", "source language: auto, en, de, fr")
	cmd.Flags().StringVar(&to, "to", "en", "target language: en, de, fr")
	return cmd
}

func newEmailCmd(opts *cli) *cobra.Command {
	var req tools.EmailRequest

	cmd := &cobra.Command{
		Use:   "email",
		Short: "Draft a customer email",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openAuthenticated(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Client().GenerateEmail(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Subject: %s\n\n%s\n", result.Subject, result.Body)
			if result.Tone != "" {
				fmt.Fprintf(out, "\n(tone: %s)\n", result.Tone)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&req.EmailType, "type", "t", "general_response", "complaint_response, warranty_inquiry, product_inquiry, order_status, thank_you, general_response")
	cmd.Flags().StringVarP(&req.CustomerMessage, "message", "m", "", "the customer's message (required for response types)")
	cmd.Flags().StringVar(&req.CustomerName, "name", "", "customer name")
	cmd.Flags().StringVar(&req.OrderNumber, "order", "", "order number")
	cmd.Flags().StringVar(&req.ProductName, "product", "", "product name")
	cmd.Flags().StringVar(&req.Context, "note", "", "additional context for the draft")
	return cmd
}

func newComplaintCmd(opts *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "complaint <text...>",
		Short: "Analyze a customer complaint",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openAuthenticated(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Client().AnalyzeComplaint(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Analysis)
			return nil
		},
	}
}

func newUploadCmd(opts *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Upload a PDF for analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer file.Close()

			app, err := opts.openAuthenticated(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer app.Close()

			result, err := app.Client().UploadPDF(cmd.Context(), filepath.Base(args[0]), file)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Document %d: %s (%d pages, %d words)\n",
				result.Document.ID, result.Document.OriginalFilename, result.PDFInfo.PageCount, result.PDFInfo.WordCount)
			printList(cmd, "Dates", result.BusinessAnalysis.Dates)
			printList(cmd, "Amounts", result.BusinessAnalysis.Amounts)
			printList(cmd, "Companies", result.BusinessAnalysis.Companies)
			printList(cmd, "Key terms", result.BusinessAnalysis.KeyTerms)
			if result.AIAnalysis != "" {
				fmt.Fprintf(out, "\n%s\n", result.AIAnalysis)
			}
			return nil
		},
	}
}

func newDocumentsCmd(opts *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "documents",
		Short: "List uploaded documents that have not expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.openAuthenticated(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer app.Close()

			docs, err := app.Client().ListDocuments(cmd.Context())
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No documents")
				return nil
			}
			for _, doc := range docs {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%d bytes\texpires %s\n",
					doc.ID, doc.OriginalFilename, doc.FileSize, formatTime(doc.ExpiresAt))
			}
			return nil
		},
	}
}

func newHealthCmd(opts *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the API and its dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			cfg.API.CookieFile = ""

			app, err := opts.openWith(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			defer app.Close()

			health, err := app.Client().Health(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "overall: %s\n", health.Overall)
			names := make([]string, 0, len(health.Services))
			for name := range health.Services {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				svc := health.Services[name]
				line := fmt.Sprintf("  %s: %s", name, svc.Status)
				if svc.Error != "" {
					line += " (" + svc.Error + ")"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func printList(cmd *cobra.Command, label string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", label, strings.Join(values, ", "))
}
