package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/cenkalti/log"
	"github.com/mitchellh/go-homedir"
	"github.com/squallbt/squall/engine/enginesim"
	"github.com/squallbt/squall/internal/jsonutil"
	"github.com/squallbt/squall/internal/logger"
	"github.com/squallbt/squall/internal/rpctypes"
	"github.com/squallbt/squall/squallrpc"
	"github.com/squallbt/squall/torrent"
	"github.com/squallbt/squall/torrent/blobstore"
	"github.com/squallbt/squall/torrent/blobstore/boltstore"
	"github.com/squallbt/squall/torrent/blobstore/fsstore"
	"github.com/urfave/cli"
	"gopkg.in/yaml.v2"
)

var (
	app = cli.NewApp()
	clt *squallrpc.Client
)

func main() {
	app.Version = torrent.Version
	app.Usage = "BitTorrent session daemon and client"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Value: "~/squall/config.yaml",
			Usage: "path to config file",
		},
		cli.BoolFlag{
			Name:  "debug, d",
			Usage: "enable debug log",
		},
	}
	app.Before = handleBeforeCommand
	app.Commands = []cli.Command{
		{
			Name:  "server",
			Usage: "run daemon",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "store",
					Value: "fs",
					Usage: "blob store backend: fs or bolt",
				},
			},
			Action: handleServer,
		},
		{
			Name:  "client",
			Usage: "send rpc request to daemon",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "url",
					Value: "http://127.0.0.1:" + fmt.Sprint(torrent.DefaultConfig.RPCPort),
					Usage: "URL of RPC server",
				},
				cli.DurationFlag{
					Name:  "wait",
					Usage: "wait until the daemon answers before sending the request",
				},
			},
			Before: handleBeforeClient,
			Subcommands: []cli.Command{
				{
					Name:   "version",
					Usage:  "server version",
					Action: handleVersion,
				},
				{
					Name:   "list",
					Usage:  "list torrents",
					Action: handleList,
				},
				{
					Name:      "add",
					Usage:     "add torrent file, magnet link or http url",
					ArgsUsage: "<torrent path, magnet link or url>",
					Flags: []cli.Flag{
						cli.BoolFlag{
							Name:  "stopped",
							Usage: "do not start the torrent after adding",
						},
						cli.BoolFlag{
							Name:  "stop-when-ready",
							Usage: "stop the torrent after file checking completes",
						},
						cli.BoolFlag{
							Name:  "forced",
							Usage: "start regardless of the active torrent limits",
						},
						cli.BoolFlag{
							Name:  "sequential",
							Usage: "download pieces in order",
						},
						cli.BoolFlag{
							Name:  "skip-checking",
							Usage: "do not verify existing data",
						},
						cli.StringFlag{
							Name:  "save-path",
							Usage: "directory to save the data into",
						},
						cli.StringFlag{
							Name:  "category",
							Usage: "category to add the torrent into",
						},
						cli.StringFlag{
							Name:  "tags",
							Usage: "comma separated tags",
						},
					},
					Action: handleAdd,
				},
				{
					Name:      "download-metadata",
					Usage:     "fetch metadata of a magnet link without adding it",
					ArgsUsage: "<magnet link>",
					Action:    handleDownloadMetadata,
				},
				{
					Name:      "remove",
					Usage:     "remove torrent",
					ArgsUsage: "<info hash>",
					Flags: []cli.Flag{
						cli.StringFlag{
							Name:  "delete",
							Value: "keep",
							Usage: "what to delete: keep, partfile or data",
						},
					},
					Action: handleRemove,
				},
				{
					Name:      "stats",
					Usage:     "show torrent stats, or session stats with no argument",
					ArgsUsage: "[info hash]",
					Action:    handleStats,
				},
				{
					Name:      "pause",
					Usage:     "pause torrent",
					ArgsUsage: "<info hash>",
					Action:    handlePause,
				},
				{
					Name:      "resume",
					Usage:     "resume torrent",
					ArgsUsage: "<info hash>",
					Action:    handleResume,
				},
				{
					Name:      "move",
					Usage:     "move torrent data to another directory",
					ArgsUsage: "<info hash> <destination>",
					Flags: []cli.Flag{
						cli.BoolFlag{
							Name:  "skip-existing",
							Usage: "keep files that already exist at the destination",
						},
					},
					Action: handleMove,
				},
				{
					Name:      "queue",
					Usage:     "move torrents in the download queue",
					ArgsUsage: "<up|down|top|bottom> <info hash>...",
					Action:    handleQueue,
				},
				{
					Name:   "config",
					Usage:  "show daemon config",
					Action: handleConfig,
				},
				{
					Name:      "ban-ip",
					Usage:     "ban a peer address",
					ArgsUsage: "<ip>",
					Action:    handleBanIP,
				},
				{
					Name:   "banned-ips",
					Usage:  "list banned peer addresses",
					Action: handleBannedIPs,
				},
				{
					Name:  "category",
					Usage: "manage categories",
					Subcommands: []cli.Command{
						{
							Name:      "add",
							ArgsUsage: "<name> [save path]",
							Action:    handleCategoryAdd,
						},
						{
							Name:      "edit",
							ArgsUsage: "<name> <save path>",
							Action:    handleCategoryEdit,
						},
						{
							Name:      "remove",
							ArgsUsage: "<name>",
							Action:    handleCategoryRemove,
						},
						{
							Name:   "list",
							Action: handleCategoryList,
						},
						{
							Name:      "set",
							Usage:     "set the category of a torrent",
							ArgsUsage: "<info hash> <name>",
							Action:    handleCategorySet,
						},
					},
				},
				{
					Name:  "tag",
					Usage: "manage tags",
					Subcommands: []cli.Command{
						{
							Name:      "add",
							ArgsUsage: "<tag>",
							Action:    handleTagAdd,
						},
						{
							Name:      "remove",
							ArgsUsage: "<tag>",
							Action:    handleTagRemove,
						},
						{
							Name:   "list",
							Action: handleTagList,
						},
						{
							Name:      "attach",
							Usage:     "attach tags to a torrent",
							ArgsUsage: "<info hash> <tag>...",
							Action:    handleTagAttach,
						},
						{
							Name:      "detach",
							Usage:     "detach tags from a torrent",
							ArgsUsage: "<info hash> <tag>...",
							Action:    handleTagDetach,
						},
					},
				},
			},
		},
	}
	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func handleBeforeCommand(c *cli.Context) error {
	if c.GlobalBool("debug") {
		logger.SetLevel(log.DEBUG)
	} else {
		logger.SetLevel(log.INFO)
	}
	return nil
}

func prepareConfig(c *cli.Context) (torrent.Config, error) {
	cfg := torrent.DefaultConfig
	configPath := c.GlobalString("config")
	cp, err := homedir.Expand(configPath)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(cp)
	switch {
	case os.IsNotExist(err):
		log.Noticef("config file not found at %q, using default config", cp)
	case err != nil:
		return cfg, err
	default:
		err = yaml.UnmarshalStrict(b, &cfg)
		if err != nil {
			return cfg, err
		}
		log.Infoln("config loaded from:", cp)
	}
	return cfg, nil
}

func handleServer(c *cli.Context) error {
	cfg, err := prepareConfig(c)
	if err != nil {
		return err
	}
	dataDir, err := homedir.Expand(cfg.DataDir)
	if err != nil {
		return err
	}
	err = os.MkdirAll(dataDir, 0750)
	if err != nil {
		return err
	}
	var store blobstore.Store
	switch c.String("store") {
	case "fs":
		store, err = fsstore.New(dataDir)
	case "bolt":
		store, err = boltstore.New(dataDir + "/session.db")
	default:
		return fmt.Errorf("unknown store backend: %q", c.String("store"))
	}
	if err != nil {
		return err
	}
	eng := enginesim.New(enginesim.DefaultConfig)
	ses, err := torrent.New(cfg, eng, store, nil)
	if err != nil {
		return err
	}
	err = ses.Start()
	if err != nil {
		_ = ses.Close()
		return err
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	sig := <-ch
	log.Noticef("received %s, stopping server", sig)
	return ses.Close()
}

func handleBeforeClient(c *cli.Context) error {
	clt = squallrpc.NewClient(c.String("url"))
	if d := c.Duration("wait"); d > 0 {
		return clt.WaitReady(d)
	}
	return nil
}

func printJSON(v interface{}) error {
	b, err := jsonutil.MarshalCompactPretty(v)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(b)
	return err
}

func handleVersion(c *cli.Context) error {
	version, err := clt.ServerVersion()
	if err != nil {
		return err
	}
	fmt.Println(version)
	return nil
}

func handleList(c *cli.Context) error {
	torrents, err := clt.ListTorrents()
	if err != nil {
		return err
	}
	for _, t := range torrents {
		err = printJSON(t)
		if err != nil {
			return err
		}
	}
	return nil
}

func addOptions(c *cli.Context) rpctypes.AddTorrentOptions {
	opt := rpctypes.AddTorrentOptions{
		Stopped:       c.Bool("stopped"),
		StopWhenReady: c.Bool("stop-when-ready"),
		Forced:        c.Bool("forced"),
		Sequential:    c.Bool("sequential"),
		SkipChecking:  c.Bool("skip-checking"),
		SavePath:      c.String("save-path"),
		Category:      c.String("category"),
	}
	if tags := c.String("tags"); tags != "" {
		opt.Tags = strings.Split(tags, ",")
	}
	return opt
}

func handleAdd(c *cli.Context) error {
	arg := c.Args().Get(0)
	if arg == "" {
		return cli.NewExitError("first argument must be a torrent file, magnet link or url", 1)
	}
	opt := addOptions(c)
	var t *rpctypes.Torrent
	f, err := os.Open(arg)
	switch {
	case err == nil:
		t, err = clt.AddTorrent(f, opt)
		_ = f.Close()
	case os.IsNotExist(err):
		t, err = clt.AddURI(arg, opt)
	}
	if err != nil {
		return err
	}
	return printJSON(t)
}

func handleDownloadMetadata(c *cli.Context) error {
	return clt.DownloadMetadata(c.Args().Get(0))
}

func handleRemove(c *cli.Context) error {
	return clt.RemoveTorrent(c.Args().Get(0), c.String("delete"))
}

func handleStats(c *cli.Context) error {
	if ih := c.Args().Get(0); ih != "" {
		t, err := clt.GetTorrent(ih)
		if err != nil {
			return err
		}
		return printJSON(t)
	}
	stats, err := clt.GetSessionStats()
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func handlePause(c *cli.Context) error {
	return clt.PauseTorrent(c.Args().Get(0))
}

func handleResume(c *cli.Context) error {
	return clt.ResumeTorrent(c.Args().Get(0))
}

func handleMove(c *cli.Context) error {
	mode := "overwrite"
	if c.Bool("skip-existing") {
		mode = "skip"
	}
	return clt.MoveStorage(c.Args().Get(0), c.Args().Get(1), mode)
}

func handleQueue(c *cli.Context) error {
	args := c.Args()
	if len(args) < 2 {
		return cli.NewExitError("usage: queue <up|down|top|bottom> <info hash>...", 1)
	}
	return clt.ReorderQueue(args.Get(0), args.Tail())
}

func handleConfig(c *cli.Context) error {
	cfg, err := clt.GetConfig()
	if err != nil {
		return err
	}
	return printJSON(cfg)
}

func handleBanIP(c *cli.Context) error {
	return clt.BanIP(c.Args().Get(0))
}

func handleBannedIPs(c *cli.Context) error {
	ips, err := clt.GetBannedIPs()
	if err != nil {
		return err
	}
	for _, ip := range ips {
		fmt.Println(ip)
	}
	return nil
}

func handleCategoryAdd(c *cli.Context) error {
	return clt.AddCategory(c.Args().Get(0), c.Args().Get(1))
}

func handleCategoryEdit(c *cli.Context) error {
	return clt.EditCategory(c.Args().Get(0), c.Args().Get(1))
}

func handleCategoryRemove(c *cli.Context) error {
	return clt.RemoveCategory(c.Args().Get(0))
}

func handleCategoryList(c *cli.Context) error {
	categories, err := clt.GetCategories()
	if err != nil {
		return err
	}
	return printJSON(struct{ Categories map[string]string }{categories})
}

func handleCategorySet(c *cli.Context) error {
	return clt.SetTorrentCategory(c.Args().Get(0), c.Args().Get(1))
}

func handleTagAdd(c *cli.Context) error {
	return clt.AddTag(c.Args().Get(0))
}

func handleTagRemove(c *cli.Context) error {
	return clt.RemoveTag(c.Args().Get(0))
}

func handleTagList(c *cli.Context) error {
	tags, err := clt.GetTags()
	if err != nil {
		return err
	}
	for _, tag := range tags {
		fmt.Println(tag)
	}
	return nil
}

func handleTagAttach(c *cli.Context) error {
	return clt.AddTorrentTags(c.Args().Get(0), c.Args().Tail())
}

func handleTagDetach(c *cli.Context) error {
	return clt.RemoveTorrentTags(c.Args().Get(0), c.Args().Tail())
}
