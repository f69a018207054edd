// Command murmurctl calls the murmur API from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackmichael/murmur/internal/client"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	server string
	token  string
	as     string
}

func (g *globalFlags) client() (*client.Client, error) {
	if g.server == "" {
		return nil, fmt.Errorf("--server is required (or set MURMUR_SERVER)")
	}
	var opts []client.Option
	if g.token != "" {
		opts = append(opts, client.WithToken(g.token))
	}
	if g.as != "" {
		opts = append(opts, client.WithUser(g.as))
	}
	return client.New(strings.TrimSuffix(g.server, "/"), opts...), nil
}

func rootCmd() *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "murmurctl",
		Short:         "Command line client for the murmur API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&g.server, "server", envOrDefault("MURMUR_SERVER", "http://localhost:3000"), "API base URL")
	cmd.PersistentFlags().StringVar(&g.token, "token", envOrDefault("MURMUR_TOKEN", ""), "Bearer token")
	cmd.PersistentFlags().StringVar(&g.as, "as", envOrDefault("MURMUR_USER", ""), "Act as this user via the gateway header (dev servers only)")

	cmd.AddCommand(
		postCmd(g),
		deletePostCmd(g),
		feedCmd(g),
		followCmd(g, true),
		followCmd(g, false),
		bookmarkCmd(g),
		bookmarksCmd(g),
		dmCmd(g),
		messagesCmd(g),
		conversationsCmd(g),
		profileCmd(g),
	)
	return cmd
}

func postCmd(g *globalFlags) *cobra.Command {
	var p client.NewPost
	cmd := &cobra.Command{
		Use:   "post <content>",
		Short: "Publish a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			p.Content = args[0]
			post, err := c.CreatePost(cmd.Context(), p)
			if err != nil {
				return err
			}
			return printJSON(post)
		},
	}
	cmd.Flags().StringVar(&p.Privacy, "privacy", "public", "public, followers or private")
	cmd.Flags().BoolVar(&p.IsAnonymous, "anonymous", false, "Hide the author")
	cmd.Flags().StringVar(&p.ContentWarning, "cw", "", "Content warning")
	cmd.Flags().StringSliceVar(&p.Hashtags, "tag", nil, "Hashtag (repeatable)")
	cmd.Flags().StringSliceVar(&p.Media, "media", nil, "Media reference (repeatable)")
	return cmd
}

func deletePostCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-post <post-id>",
		Short: "Delete one of your posts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			if err := c.DeletePost(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Post %s deleted\n", args[0])
			return nil
		},
	}
}

func feedCmd(g *globalFlags) *cobra.Command {
	var (
		cursor string
		limit  int
		tag    string
	)
	cmd := &cobra.Command{
		Use:       "feed <home|discovery>",
		Short:     "Show a page of a feed",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"home", "discovery"},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			var page *client.FeedPage
			if args[0] == "home" {
				page, err = c.HomeFeed(cmd.Context(), cursor, limit)
			} else {
				page, err = c.DiscoveryFeed(cmd.Context(), cursor, limit, tag)
			}
			if err != nil {
				return err
			}
			return printJSON(page)
		},
	}
	cmd.Flags().StringVar(&cursor, "cursor", "", "Cursor from a previous page")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size (1-100)")
	cmd.Flags().StringVar(&tag, "tag", "", "Only posts with this hashtag (discovery)")
	return cmd
}

func followCmd(g *globalFlags, follow bool) *cobra.Command {
	use, short := "follow <user-id>", "Follow a user"
	if !follow {
		use, short = "unfollow <user-id>", "Stop following a user"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			if follow {
				err = c.Follow(cmd.Context(), args[0])
			} else {
				err = c.Unfollow(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			following, err := c.IsFollowing(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("following %s: %t\n", args[0], following)
			return nil
		},
	}
}

func bookmarkCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "bookmark <post-id>",
		Short: "Toggle a bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			on, err := c.ToggleBookmark(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("bookmarked %s: %t\n", args[0], on)
			return nil
		},
	}
}

func bookmarksCmd(g *globalFlags) *cobra.Command {
	var (
		cursor string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "bookmarks",
		Short: "List your bookmarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			page, err := c.ListBookmarks(cmd.Context(), cursor, limit)
			if err != nil {
				return err
			}
			return printJSON(page)
		},
	}
	cmd.Flags().StringVar(&cursor, "cursor", "", "Cursor from a previous page")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size (1-100)")
	return cmd
}

func dmCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dm <user-id> <message>",
		Short: "Send a direct message, starting the conversation if needed",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			id, err := c.ResolveConversation(ctx, args[0])
			if err != nil {
				return err
			}
			msg, err := c.SendMessage(ctx, id, args[1])
			if err != nil {
				return err
			}
			return printJSON(msg)
		},
	}
}

func messagesCmd(g *globalFlags) *cobra.Command {
	var (
		cursor string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "messages <conversation-id>",
		Short: "Show a conversation, oldest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			page, err := c.ListMessages(cmd.Context(), args[0], cursor, limit)
			if err != nil {
				return err
			}
			return printJSON(page)
		},
	}
	cmd.Flags().StringVar(&cursor, "cursor", "", "Cursor from a previous page")
	cmd.Flags().IntVar(&limit, "limit", 0, "Page size (1-100)")
	return cmd
}

func conversationsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "conversations",
		Short: "List your conversations, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			convs, err := c.ListConversations(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(convs)
		},
	}
}

func profileCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update profiles",
	}

	var displayName, avatarURL string
	set := &cobra.Command{
		Use:   "set <handle>",
		Short: "Set your own profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			p, err := c.UpsertProfile(cmd.Context(), args[0], displayName, avatarURL)
			if err != nil {
				return err
			}
			return printJSON(p)
		},
	}
	set.Flags().StringVar(&displayName, "name", "", "Display name")
	set.Flags().StringVar(&avatarURL, "avatar", "", "Avatar URL")

	show := &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show a user's profile and follow counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}
			return showProfile(cmd.Context(), c, args[0])
		},
	}

	cmd.AddCommand(set, show)
	return cmd
}

func showProfile(ctx context.Context, c *client.Client, userID string) error {
	p, err := c.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	following, err := c.Following(ctx, userID)
	if err != nil {
		return err
	}
	followers, err := c.Followers(ctx, userID)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"profile":   p,
		"following": len(following),
		"followers": len(followers),
	})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
