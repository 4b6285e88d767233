package main

import (
	"chatlark/domain"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func (c *cli) roomsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rooms",
		Short: "List the rooms of the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.directory.Refresh(ctx); err != nil {
					return err
				}
				printRooms(cmd.OutOrStdout(), a.directory.Rooms())
				return nil
			})
		},
	}
}

func (c *cli) createRoomCommand() *cobra.Command {
	var roomType string
	cmd := &cobra.Command{
		Use:   "create-room NAME",
		Short: "Create a chat room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				room, err := a.directory.CreateRoom(ctx, args[0], domain.RoomType(roomType))
				if err != nil {
					return err
				}
				printRooms(cmd.OutOrStdout(), []domain.Room{room})
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&roomType, "type", string(domain.PublicRoom), "public or private")
	return cmd
}

func (c *cli) membersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "members ROOM_ID",
		Short: "List the members of a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			roomID, err := parseRoomID(args[0])
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				members, err := a.memberships.List(ctx, roomID)
				if err != nil {
					return err
				}
				printUsers(cmd.OutOrStdout(), lo.Map(members, func(m domain.Member, _ int) domain.User { return m.User }))
				return nil
			})
		},
	}
}

func (c *cli) searchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search ROOM_ID TERM",
		Short: "Find users that could be added to a room",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			roomID, err := parseRoomID(args[0])
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				users, err := a.memberships.SearchCandidates(ctx, roomID, args[1])
				if err != nil {
					return err
				}
				printUsers(cmd.OutOrStdout(), users)
				return nil
			})
		},
	}
}

func (c *cli) addMemberCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add-member ROOM_ID USER_ID",
		Short: "Add a user to a room",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			roomID, userID, err := parseMembership(args)
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				return a.memberships.Add(ctx, roomID, userID)
			})
		},
	}
}

func (c *cli) removeMemberCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-member ROOM_ID USER_ID",
		Short: "Remove a user from a room",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			roomID, userID, err := parseMembership(args)
			if err != nil {
				return err
			}
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				return a.memberships.Remove(ctx, roomID, userID)
			})
		},
	}
}

func parseRoomID(raw string) (domain.RoomID, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid room id %q", raw)
	}
	return domain.RoomID(id), nil
}

func parseMembership(args []string) (domain.RoomID, domain.UserID, error) {
	roomID, err := parseRoomID(args[0])
	if err != nil {
		return 0, 0, err
	}
	userID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || userID <= 0 {
		return 0, 0, fmt.Errorf("invalid user id %q", args[1])
	}
	return roomID, domain.UserID(userID), nil
}

func newTable(out io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func printRooms(out io.Writer, rooms []domain.Room) {
	table := newTable(out, "ID", "Name", "Type", "Activity", "Created")
	for _, r := range rooms {
		table.Append([]string{
			strconv.FormatInt(int64(r.ID), 10),
			r.Name,
			string(r.Type),
			r.Summary(),
			r.CreatedAt.Format("2006-01-02 15:04"),
		})
	}
	table.Render()
}

func printUsers(out io.Writer, users []domain.User) {
	table := newTable(out, "ID", "Login", "Email")
	for _, u := range users {
		table.Append([]string{strconv.FormatInt(int64(u.ID), 10), u.Login, u.Email})
	}
	table.Render()
}
