package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"polyglot/internal/api"
	"polyglot/internal/content"
	"polyglot/internal/language"
	"polyglot/internal/queueaccess"
)

func newContentCommand(ctx *commandContext) *cobra.Command {
	contentCmd := &cobra.Command{
		Use:   "content",
		Short: "Manage posts in the content database",
	}

	contentCmd.AddCommand(newContentAddCommand(ctx))
	contentCmd.AddCommand(newContentListCommand(ctx))
	contentCmd.AddCommand(newContentShowCommand(ctx))
	contentCmd.AddCommand(newContentLinkCommand(ctx))
	contentCmd.AddCommand(newContentSetLanguageCommand(ctx))

	return contentCmd
}

type postView struct {
	ID           int64               `json:"id"`
	Title        string              `json:"title"`
	Language     string              `json:"language,omitempty"`
	Status       string              `json:"status"`
	Type         string              `json:"type"`
	Content      string              `json:"content,omitempty"`
	CreatedAt    string              `json:"created_at"`
	UpdatedAt    string              `json:"updated_at"`
	Translations map[string]int64    `json:"translations,omitempty"`
	Meta         map[string][]string `json:"meta,omitempty"`
	Terms        map[string][]int64  `json:"terms,omitempty"`
	Jobs         []api.QueueItem     `json:"jobs,omitempty"`
}

func newPostView(post *content.Post) postView {
	return postView{
		ID:        post.ID,
		Title:     post.Title,
		Language:  post.Language,
		Status:    post.Status,
		Type:      post.Type,
		Content:   post.Content,
		CreatedAt: post.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: post.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func newContentAddCommand(ctx *commandContext) *cobra.Command {
	var title string
	var lang string
	var body string
	var bodyFile string
	var status string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a post",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" {
				return errors.New("--title is required")
			}
			if body != "" && bodyFile != "" {
				return errors.New("specify only one of --body or --file")
			}
			if bodyFile != "" {
				data, err := readBody(cmd, bodyFile)
				if err != nil {
					return err
				}
				body = data
			}
			normalized := ""
			if strings.TrimSpace(lang) != "" {
				code, err := language.Normalize(lang)
				if err != nil {
					return err
				}
				normalized = code
			}
			return ctx.withContent(func(store *content.Store) error {
				id, err := store.CreatePost(cmd.Context(), content.Post{
					Title:    title,
					Content:  body,
					Status:   status,
					Language: normalized,
				})
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]int64{"id": id})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created post %d\n", id)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Post title")
	cmd.Flags().StringVarP(&lang, "lang", "l", "", "Post language code")
	cmd.Flags().StringVar(&body, "body", "", "Post content")
	cmd.Flags().StringVar(&bodyFile, "file", "", "Read post content from a file (- for stdin)")
	cmd.Flags().StringVar(&status, "status", "", "Post status (default draft)")
	return cmd
}

func newContentListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withContent(func(store *content.Store) error {
				posts, err := store.ListPosts(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					views := make([]postView, 0, len(posts))
					for _, post := range posts {
						view := newPostView(post)
						view.Content = ""
						views = append(views, view)
					}
					return writeJSON(cmd, map[string]any{"posts": views})
				}
				if len(posts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No posts")
					return nil
				}
				now := time.Now()
				rows := make([][]string, 0, len(posts))
				for _, post := range posts {
					lang := post.Language
					if lang == "" {
						lang = "-"
					}
					rows = append(rows, []string{
						fmt.Sprintf("%d", post.ID),
						truncate(post.Title, 48),
						lang,
						formatStatusLabel(post.Status),
						humanize.Bytes(uint64(len(post.Content))),
						humanize.RelTime(post.UpdatedAt, now, "ago", "from now"),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(postListColumns, rows))
				return nil
			})
		},
	}
}

func newContentShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <post-id>",
		Short: "Show a post with its translations, metadata, and terms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withContent(func(store *content.Store) error {
				post, err := store.GetPost(cmd.Context(), id)
				if err != nil {
					return err
				}
				if post == nil {
					return fmt.Errorf("post %d not found", id)
				}
				view := newPostView(post)
				if view.Translations, err = store.Translations(cmd.Context(), id); err != nil {
					return err
				}
				meta, err := store.Meta(cmd.Context(), id)
				if err != nil {
					return err
				}
				if len(meta) > 0 {
					view.Meta = make(map[string][]string, len(meta))
					for _, entry := range meta {
						view.Meta[entry.Key] = entry.Values
					}
				}
				terms, err := store.PostTerms(cmd.Context(), id)
				if err != nil {
					return err
				}
				if len(terms) > 0 {
					view.Terms = make(map[string][]int64, len(terms))
					for _, tax := range terms {
						view.Terms[tax.Taxonomy] = tax.TermIDs
					}
				}
				if view.Jobs, err = postJobs(cmd.Context(), ctx, id); err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, view)
				}
				printPost(cmd.OutOrStdout(), view)
				return nil
			})
		},
	}
}

func newContentLinkCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "link <post-id> <lang>=<post-id>...",
		Short: "Record posts as translations of each other",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			pairs, err := parseTranslationPairs(args[1:])
			if err != nil {
				return err
			}
			return ctx.withContent(func(store *content.Store) error {
				group, err := store.Translations(cmd.Context(), id)
				if err != nil {
					return err
				}
				if len(group) == 0 {
					return fmt.Errorf("post %d has no language; set one with `polyglot content set-lang`", id)
				}
				for lang, postID := range pairs {
					post, err := store.GetPost(cmd.Context(), postID)
					if err != nil {
						return err
					}
					if post == nil {
						return fmt.Errorf("post %d not found", postID)
					}
					group[lang] = postID
				}
				if err := store.SaveTranslations(cmd.Context(), group); err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, map[string]any{"translations": group})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Linked %s\n", formatTranslationGroup(group))
				return nil
			})
		},
	}
}

func newContentSetLanguageCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set-lang <post-id> <lang>",
		Short: "Assign a language to a post",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			code, err := language.Normalize(args[1])
			if err != nil {
				return err
			}
			return ctx.withContent(func(store *content.Store) error {
				if err := store.SetPostLanguage(cmd.Context(), id, code); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Post %d language set to %s\n", id, code)
				return nil
			})
		},
	}
}

func parseTranslationPairs(args []string) (map[string]int64, error) {
	pairs := make(map[string]int64, len(args))
	for _, arg := range args {
		lang, idText, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("invalid translation %q (want lang=post-id)", arg)
		}
		code, err := language.Normalize(lang)
		if err != nil {
			return nil, err
		}
		id, err := parsePositiveID(idText)
		if err != nil {
			return nil, err
		}
		pairs[code] = id
	}
	return pairs, nil
}

func formatTranslationGroup(group map[string]int64) string {
	langs := make([]string, 0, len(group))
	for lang := range group {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	parts := make([]string, 0, len(langs))
	for _, lang := range langs {
		parts = append(parts, fmt.Sprintf("%s=%d", lang, group[lang]))
	}
	return strings.Join(parts, ", ")
}

func readBody(cmd *cobra.Command, path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func printPost(out io.Writer, view postView) {
	fmt.Fprintf(out, "ID: %d\n", view.ID)
	fmt.Fprintf(out, "Title: %s\n", view.Title)
	lang := view.Language
	if lang == "" {
		lang = "-"
	} else {
		lang = fmt.Sprintf("%s (%s)", lang, language.DisplayName(lang))
	}
	fmt.Fprintf(out, "Language: %s\n", lang)
	fmt.Fprintf(out, "Status: %s\n", formatStatusLabel(view.Status))
	fmt.Fprintf(out, "Updated: %s\n", formatDisplayTime(view.UpdatedAt))
	if len(view.Translations) > 0 {
		fmt.Fprintf(out, "Translations: %s\n", formatTranslationGroup(view.Translations))
	}
	if len(view.Meta) > 0 {
		keys := make([]string, 0, len(view.Meta))
		for key := range view.Meta {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		fmt.Fprintln(out, "Meta:")
		for _, key := range keys {
			fmt.Fprintf(out, "  %s: %s\n", key, strings.Join(view.Meta[key], ", "))
		}
	}
	if len(view.Terms) > 0 {
		taxonomies := make([]string, 0, len(view.Terms))
		for tax := range view.Terms {
			taxonomies = append(taxonomies, tax)
		}
		sort.Strings(taxonomies)
		fmt.Fprintln(out, "Terms:")
		for _, tax := range taxonomies {
			ids := make([]string, 0, len(view.Terms[tax]))
			for _, id := range view.Terms[tax] {
				ids = append(ids, fmt.Sprintf("%d", id))
			}
			fmt.Fprintf(out, "  %s: %s\n", tax, strings.Join(ids, ", "))
		}
	}
	if len(view.Jobs) > 0 {
		fmt.Fprintln(out, "Jobs:")
		for _, job := range view.Jobs {
			line := fmt.Sprintf("  #%d %s %s", job.ID, formatLanguagePair(job.SourceLang, job.TargetLang), formatStatusLabel(job.Status))
			if job.ErrorMessage != "" {
				line += ": " + truncate(job.ErrorMessage, queueErrorColumnWidth)
			}
			fmt.Fprintln(out, line)
		}
	}
	if view.Content != "" {
		fmt.Fprintf(out, "\n%s\n", view.Content)
	}
}

// postJobs returns the translation jobs recorded for a post, newest first.
func postJobs(ctx context.Context, cmdCtx *commandContext, postID int64) ([]api.QueueItem, error) {
	var jobs []api.QueueItem
	err := cmdCtx.withQueue(func(access queueaccess.Access) error {
		var err error
		jobs, err = access.List(ctx, queueaccess.Filter{PostID: postID})
		return err
	})
	return jobs, err
}
