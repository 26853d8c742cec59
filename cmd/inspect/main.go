// Command inspect prints the content of a Badger directory without starting the server.
//
//	inspect -users
//	inspect -pair alice,bob -limit 20
//	inspect -message 01HV6Z3Q9W0X2Y4Z6A8B0C2D4E
//	inspect -prefix msgid:
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"pairchat/domain"
	"pairchat/repositories"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/mama165/sdk-go/database"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH"`
	// INSPECT_COLOURS enables colorized output
	Colours bool `envconfig:"INSPECT_COLOURS" default:"true"`
}

func main() {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if config.BadgerFilepath == "" {
		config.BadgerFilepath = database.DefaultPath
	}

	dbPath := flag.String("db", config.BadgerFilepath, "Path to badger DB")
	users := flag.Bool("users", false, "List the user directory")
	pair := flag.String("pair", "", "Two comma separated usernames whose conversation is printed")
	limit := flag.Int("limit", 50, "Maximum number of messages, 0 for all")
	messageID := flag.String("message", "", "Print one message with its read receipts")
	prefix := flag.String("prefix", "", "Raw scan of every key with this prefix")
	flag.Parse()

	db, err := badger.Open(badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLogger(nil))
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	ctx := context.Background()
	userRepository := repositories.NewUserRepository(db)
	switch {
	case *users:
		err = printUsers(ctx, userRepository, config.Colours)
	case *pair != "":
		messages := repositories.NewMessageRepository(db, slog.New(slog.DiscardHandler))
		err = printConversation(ctx, userRepository, messages, *pair, *limit)
	case *messageID != "":
		err = printMessage(ctx, repositories.NewMessageRepository(db, slog.New(slog.DiscardHandler)), *messageID)
	case *prefix != "":
		err = printRaw(db, *prefix)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal(err)
	}
}

func newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
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

func printUsers(ctx context.Context, users repositories.IUserRepository, colours bool) error {
	all, err := users.ListAll(ctx)
	if err != nil {
		return err
	}
	table := newTable("ID", "Username", "Status", "Last seen", "Created")
	for _, user := range all {
		status := "offline"
		if user.IsOnline {
			status = "online"
		}
		if colours {
			status = statusColour(user.IsOnline).Render(status)
		}
		table.Append([]string{string(user.ID), user.Username, status, format(user.LastSeen), format(user.CreatedAt)})
	}
	table.Render()
	return nil
}

func statusColour(online bool) color.Style {
	if online {
		return color.New(color.FgGreen, color.OpBold)
	}
	return color.New(color.FgGray)
}

func printConversation(ctx context.Context, users repositories.IUserRepository,
	messages repositories.IMessageRepository, pair string, limit int) error {
	names := strings.Split(pair, ",")
	if len(names) != 2 {
		return fmt.Errorf("-pair expects two usernames, got %q", pair)
	}
	var ids [2]domain.UserID
	for i, name := range names {
		user, err := users.GetUserByUsername(ctx, strings.TrimSpace(name))
		if err != nil {
			return fmt.Errorf("user %q: %w", name, err)
		}
		ids[i] = user.ID
	}

	conversation, hasMore, err := messages.FindByPair(ctx, ids[0], ids[1], limit, "")
	if err != nil {
		return err
	}
	table := newTable("ID", "At", "Sender", "Type", "Content", "Read by", "Edited")
	for _, m := range conversation {
		sender := names[0]
		if m.Sender == ids[1] {
			sender = names[1]
		}
		content := m.Content
		if m.File != nil {
			content = fmt.Sprintf("[%s] %s", m.File.OriginalName, content)
		}
		edited := ""
		if m.Edited {
			edited = "yes"
		}
		table.Append([]string{m.ID, format(m.CreatedAt), sender, string(m.Type), content,
			fmt.Sprint(len(m.ReadBy)), edited})
	}
	table.Render()
	if hasMore {
		fmt.Println(color.Yellow.Sprintf("Older messages exist, raise -limit to see them."))
	}
	return nil
}

func printMessage(ctx context.Context, messages repositories.IMessageRepository, id string) error {
	m, err := messages.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("message %q: %w", id, err)
	}
	table := newTable("Field", "Value")
	table.Append([]string{"Room", string(m.Room())})
	table.Append([]string{"Sender", string(m.Sender)})
	table.Append([]string{"Receiver", string(m.Receiver)})
	table.Append([]string{"Type", string(m.Type)})
	table.Append([]string{"Content", m.Content})
	table.Append([]string{"Created", format(m.CreatedAt)})
	if m.Edited && m.EditedAt != nil {
		table.Append([]string{"Edited", format(*m.EditedAt)})
	}
	if m.File != nil {
		table.Append([]string{"File", fmt.Sprintf("%s (%s, %d bytes)", m.File.OriginalName, m.File.MimeType, m.File.Size)})
	}
	for _, receipt := range m.ReadBy {
		table.Append([]string{"Read by", fmt.Sprintf("%s at %s", receipt.Reader, format(receipt.ReadAt))})
	}
	table.Render()
	return nil
}

func printRaw(db *badger.DB, prefix string) error {
	table := newTable("Key", "Kind", "Owner", "At", "Detail")
	err := db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)); it.Next() {
			item := it.Item()
			err := item.Value(func(v []byte) error {
				entry := repositories.DescribeEntry(item.Key(), v)
				table.Append([]string{string(item.Key()), entry.Kind, entry.Owner, format(entry.At), entry.Detail})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	table.Render()
	return nil
}

func format(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
