package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"

	"github.com/Sovan7777/spardha-26/client"
	"github.com/Sovan7777/spardha-26/loginview"
	"github.com/Sovan7777/spardha-26/models"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "spardha-admin",
		Usage: "admin tools for Spardha registrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "base URL of the registration server",
				Value:   "http://localhost:8080",
				EnvVars: []string{"SPARDHA_SERVER"},
			},
			&cli.StringFlag{
				Name:    "passkey",
				Usage:   "admin passkey",
				EnvVars: []string{"SPARDHA_ADMIN_PASSKEY"},
			},
		},
		Commands: []*cli.Command{
			newLoginCommand(),
			newTeamsCommand(),
			newReportCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// routeRecorder запоминает, куда login view попросил перейти.
type routeRecorder struct {
	route string
}

func (r *routeRecorder) Navigate(route string) { r.route = route }

// authenticate проходит тот же login view, что и браузер, и возвращает клиент с сессией.
func authenticate(c *cli.Context) (*client.AdminClient, string, error) {
	api, err := client.NewAdminClient(c.String("server"), nil)
	if err != nil {
		return nil, "", err
	}

	nav := &routeRecorder{}
	view := loginview.New(api, nav, nil)
	if err := view.Submit(c.Context, c.String("passkey")); err != nil {
		return nil, "", err
	}
	if view.State() != loginview.StateNavigated {
		return nil, "", cli.Exit(view.ErrorMessage(), 1)
	}
	return api, nav.route, nil
}

func newLoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "check the passkey and print a session token",
		Action: func(c *cli.Context) error {
			api, route, err := authenticate(c)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Login successful, report at %s%s\n", c.String("server"), route)
			fmt.Fprintln(c.App.Writer, api.Token())
			return nil
		},
	}
}

func newTeamsCommand() *cli.Command {
	return &cli.Command{
		Name:  "teams",
		Usage: "inspect and moderate registrations",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list registered teams",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "event"},
					&cli.StringFlag{Name: "status", Usage: "pending, approved or rejected"},
					&cli.IntFlag{Name: "page", Value: 1},
					&cli.IntFlag{Name: "limit", Value: 20},
				},
				Action: func(c *cli.Context) error {
					api, _, err := authenticate(c)
					if err != nil {
						return err
					}
					list, err := api.ListTeams(c.Context, client.ListTeamsParams{
						Event:  c.String("event"),
						Status: models.TeamStatus(c.String("status")),
						Page:   c.Int("page"),
						Limit:  c.Int("limit"),
					})
					if err != nil {
						return err
					}
					return printTeams(c.App.Writer, list)
				},
			},
			{
				Name:      "status",
				Usage:     "approve or reject a registration",
				ArgsUsage: "<teamID> <approved|rejected>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return cli.Exit("usage: teams status <teamID> <approved|rejected>", 2)
					}
					var teamID int
					if _, err := fmt.Sscan(c.Args().Get(0), &teamID); err != nil || teamID <= 0 {
						return cli.Exit(fmt.Sprintf("invalid team id %q", c.Args().Get(0)), 2)
					}

					api, _, err := authenticate(c)
					if err != nil {
						return err
					}
					team, err := api.UpdateStatus(c.Context, teamID, models.TeamStatus(c.Args().Get(1)))
					if err != nil {
						var apiErr *client.APIError
						if errors.As(err, &apiErr) {
							return cli.Exit(apiErr.Message, 1)
						}
						return err
					}
					fmt.Fprintf(c.App.Writer, "team %d is now %s\n", team.TeamID, team.Status)
					return nil
				},
			},
		},
	}
}

// printTeams выводит страницу списка таблицей, капитан берётся из состава.
func printTeams(w io.Writer, list *models.TeamListResponse) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TEAM ID\tEVENT\tCOLLEGE\tCAPTAIN\tPLAYERS\tAMOUNT\tSTATUS")
	for i := range list.Teams {
		t := &list.Teams[i]
		captain := "-"
		if p := t.Captain(); p != nil {
			captain = p.Name
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%.2f\t%s\n", t.TeamID, t.Event, t.College, captain, len(t.Players), t.Amount, t.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "page %d, %d of %d teams\n", list.Page, len(list.Teams), list.TotalCount)
	return nil
}

func newReportCommand() *cli.Command {
	return &cli.Command{
		Name:  "report",
		Usage: "registration reports",
		Subcommands: []*cli.Command{
			{
				Name:  "export",
				Usage: "download the spreadsheet export",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Value: "spardha-registrations.xlsx", Usage: "output file"},
				},
				Action: func(c *cli.Context) error {
					api, _, err := authenticate(c)
					if err != nil {
						return err
					}

					f, err := os.Create(c.String("out"))
					if err != nil {
						return err
					}
					n, err := api.DownloadReport(c.Context, f)
					if closeErr := f.Close(); err == nil {
						err = closeErr
					}
					if err != nil {
						_ = os.Remove(c.String("out"))
						return err
					}
					fmt.Fprintf(c.App.Writer, "wrote %d bytes to %s\n", n, c.String("out"))
					return nil
				},
			},
		},
	}
}
