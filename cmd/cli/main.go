package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/mintmesh/listing-ledger/internal/config"
	"github.com/mintmesh/listing-ledger/internal/config/di"
	"github.com/mintmesh/listing-ledger/internal/repository"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

var (
	container  *di.Container
	actionRepo repository.ListingActionRepository
)

func main() {
	config.Init("cli")

	var err error
	container, err = di.NewContainer()
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to create container")
	}
	actionRepo = container.GetActionRepo()

	app := &cli.App{
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api", Value: fmt.Sprintf("http://localhost:%s", config.Get().ApiPort), Usage: "base url of the ledger api"},
			&cli.StringFlag{Name: "caller", Value: "", Usage: "identity performing the operation"},
		},
		Commands: []*cli.Command{
			{
				Name:   "pause",
				Usage:  "Pause all mutating ledger operations",
				Action: pause,
			},
			{
				Name:   "unpause",
				Usage:  "Resume ledger operations",
				Action: unpause,
			},
			{
				Name:   "set-fee",
				Usage:  "Update the platform fee",
				Action: setFee,
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "bps", Usage: "fee in basis points"},
					&cli.StringFlag{Name: "receiver", Value: "", Usage: "fee receiver identity"},
				},
			},
			{
				Name:      "cancel",
				Usage:     "Cancel a listing with administrative privilege",
				Action:    cancel,
				ArgsUsage: "<listingId>",
			},
			{
				Name:   "actions",
				Usage:  "Show the indexed action history of a listing",
				Action: actions,
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "listing", Usage: "listing id"},
				},
			},
			{
				Name:   "leaderboard",
				Usage:  "Show sellers ranked by settled sale volume",
				Action: leaderboard,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "size", Value: 10, Usage: "number of sellers"},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to execute command")
	}
}

func pause(c *cli.Context) error {
	return post(c, "/admin/pause", map[string]interface{}{"caller": c.String("caller")})
}

func unpause(c *cli.Context) error {
	return post(c, "/admin/unpause", map[string]interface{}{"caller": c.String("caller")})
}

func setFee(c *cli.Context) error {
	body := map[string]interface{}{
		"caller":   c.String("caller"),
		"feeBps":   c.Uint("bps"),
		"receiver": c.String("receiver"),
	}

	req, err := json.Marshal(body)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequest("PUT", c.String("api")+"/admin/fee", bytes.NewReader(req))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	fmt.Printf("fee update: %s\n", resp.Status)

	return nil
}

func cancel(c *cli.Context) error {
	listingId := c.Args().First()
	if listingId == "" {
		return fmt.Errorf("listing id required")
	}

	return post(c, fmt.Sprintf("/listings/%s/cancel", listingId), map[string]interface{}{"caller": c.String("caller")})
}

func actions(c *cli.Context) error {
	history, total, err := actionRepo.GetActionsByListing(c.Uint64("listing"), 50, 0)
	if err != nil {
		return err
	}

	fmt.Printf("%d actions\n", total)
	for _, action := range history {
		fmt.Printf("%6d %-10s seller=%s buyer=%s qty=%d cost=%d fee=%d royalty=%d\n",
			action.Sequence, action.Action, action.Seller, action.Buyer, action.Quantity, action.Cost, action.Fee, action.Royalty)
	}

	return nil
}

func leaderboard(c *cli.Context) error {
	volumes, err := actionRepo.GetSellerVolumes(c.Int("size"))
	if err != nil {
		return err
	}

	for i, v := range volumes {
		fmt.Printf("%2d. %-40s volume=%d sales=%d\n", i+1, v.Seller, v.Volume, v.Sales)
	}

	return nil
}

func post(c *cli.Context, path string, body map[string]interface{}) error {
	req, err := json.Marshal(body)
	if err != nil {
		return err
	}

	resp, err := http.Post(c.String("api")+path, "application/json", bytes.NewReader(req))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	fmt.Printf("%s: %s\n", path, resp.Status)

	return nil
}
