// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package console

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/holomush/holobot/internal/bot"
	"github.com/holomush/holobot/internal/directory"
	"github.com/holomush/holobot/internal/trust"
	"github.com/holomush/holobot/pkg/errutil"
)

// RegisterBuiltins adds the members, level, prefix, and help functions.
func RegisterBuiltins(c *Console, b *bot.Bot) error {
	builtins := []struct {
		name, help string
		fn         Func
	}{
		{"members", "list persisted member records", membersFunc(b.Directory())},
		{"level", "<community> <user>: show a member's effective level", levelFunc(b.Directory())},
		{"prefix", "show the command prefix", func(_ context.Context, w io.Writer, _ []string) error {
			_, err := fmt.Fprintln(w, b.Prefix())
			return err //nolint:wrapcheck // console output
		}},
		{"help", "list console functions", c.helpFunc},
	}
	for _, f := range builtins {
		if err := c.Register(f.name, f.help, f.fn); err != nil {
			return err
		}
	}
	return nil
}

// WriteMembers prints member records as a table.
func WriteMembers(w io.Writer, recs []directory.MemberRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COMMUNITY\tUSER\tLEVEL")
	for _, rec := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", rec.CommunityID, rec.UserID, strings.ToLower(rec.Level.String()))
	}
	return tw.Flush() //nolint:wrapcheck // console output
}

func membersFunc(dir *directory.Directory) Func {
	return func(ctx context.Context, w io.Writer, _ []string) error {
		recs, err := dir.Store().ListMembers(ctx)
		if err != nil {
			return err //nolint:wrapcheck // already carries a store code
		}
		if len(recs) == 0 {
			_, err := fmt.Fprintln(w, "no member records")
			return err //nolint:wrapcheck // console output
		}
		return WriteMembers(w, recs)
	}
}

// levelFunc reports a member's level from the store and the global registry
// without creating a member record.
func levelFunc(dir *directory.Directory) Func {
	return func(ctx context.Context, w io.Writer, args []string) error {
		if len(args) != 2 {
			return usage("level", "<community> <user>")
		}
		communityID, err := directory.ParseID(args[0])
		if err != nil {
			return usage("level", "<community> <user>")
		}
		userID, err := directory.ParseID(args[1])
		if err != nil {
			return usage("level", "<community> <user>")
		}

		rec, _, err := dir.Store().LoadMember(ctx, userID, communityID)
		if err != nil {
			return err //nolint:wrapcheck // already carries a store code
		}
		global := trust.Default
		if u, err := dir.LookupUser(userID); err == nil {
			global = u.Level()
		} else if !errutil.HasCode(err, directory.CodeNotFound) {
			return err //nolint:wrapcheck // already carries a directory code
		}

		_, err = fmt.Fprintf(w, "user %s in community %s: %s (local %s, global %s)\n",
			userID, communityID,
			strings.ToLower(trust.Resolve(rec.Level, global).String()),
			strings.ToLower(rec.Level.String()),
			strings.ToLower(global.String()))
		return err //nolint:wrapcheck // console output
	}
}

func (c *Console) helpFunc(_ context.Context, w io.Writer, _ []string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, name := range c.Names() {
		help, _ := c.Help(name)
		fmt.Fprintf(tw, "%s\t%s\n", name, help)
	}
	return tw.Flush() //nolint:wrapcheck // console output
}
