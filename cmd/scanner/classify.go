package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bytedance/sonic"
	"github.com/tagscout/tagscout/internal/identity"
	"github.com/urfave/cli/v3"
)

// classifyOutput is the JSON form of a classification.
type classifyOutput struct {
	Matched    bool     `json:"matched"`
	Notify     bool     `json:"notify"`
	Gamertag   string   `json:"gamertag,omitempty"`
	Type       string   `json:"type,omitempty"`
	Confidence string   `json:"confidence,omitempty"`
	Evidence   string   `json:"evidence,omitempty"`
	Indicators []string `json:"indicators,omitempty"`
}

func classifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "classify",
		Usage: "Classify a single member without connecting",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true, Usage: "Account username"},
			&cli.StringFlag{Name: "display-name", Usage: "Display name"},
			&cli.FloatFlag{Name: "age-years", Usage: "Account age in years"},
			&cli.BoolFlag{Name: "animated", Usage: "Avatar is animated"},
			&cli.BoolFlag{Name: "banner", Usage: "Profile has a banner"},
			&cli.StringFlag{Name: "discriminator", Usage: "Legacy four digit discriminator"},
			&cli.StringFlag{Name: "status", Value: "offline", Usage: "Presence status"},
			&cli.StringSliceFlag{Name: "activity", Usage: "Playing activity name, repeatable"},
			&cli.BoolFlag{Name: "json", Usage: "Print the result as JSON"},
		},
		Action: func(_ context.Context, c *cli.Command) error {
			snapshot := snapshotFromFlags(c, time.Now())
			result := identity.NewClassifier().Classify(snapshot)

			return writeClassification(c.Root().Writer, result, c.Bool("json"))
		},
	}
}

func snapshotFromFlags(c *cli.Command, now time.Time) *identity.MemberSnapshot {
	snapshot := &identity.MemberSnapshot{
		Username:       c.String("username"),
		DisplayName:    c.String("display-name"),
		AvatarAnimated: c.Bool("animated"),
		BannerPresent:  c.Bool("banner"),
		Discriminator:  c.String("discriminator"),
	}

	if age := c.Float("age-years"); age > 0 {
		snapshot.CreatedAt = now.Add(-time.Duration(age * float64(identity.Year)))
	}

	presence := &identity.Presence{Status: identity.ParsePresenceStatus(c.String("status"))}
	for _, name := range c.StringSlice("activity") {
		presence.Activities = append(presence.Activities, identity.Activity{Name: name, Kind: identity.ActivityPlaying})
	}

	snapshot.Presence = presence

	return snapshot
}

func writeClassification(w io.Writer, result *identity.Result, asJSON bool) error {
	out := classifyOutput{}
	if result != nil {
		out = classifyOutput{
			Matched:    true,
			Notify:     result.IsHigh(),
			Gamertag:   result.Gamertag,
			Type:       result.Type.String(),
			Confidence: result.Confidence.String(),
			Evidence:   result.Evidence.Summary(),
			Indicators: result.Evidence.Indicators,
		}
	}

	if asJSON {
		body, err := sonic.Marshal(out)
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}

		_, err = fmt.Fprintln(w, string(body))

		return err
	}

	if !out.Matched {
		_, err := fmt.Fprintln(w, "no match")
		return err
	}

	_, err := fmt.Fprintf(w, "gamertag:   %s\ntype:       %s\nconfidence: %s\nevidence:   %s\nnotify:     %t\n",
		out.Gamertag, out.Type, out.Confidence, out.Evidence, out.Notify)

	return err
}
