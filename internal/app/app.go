package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/goblinlaunch/goblinbot/core/bootstrap"
	corecmd "github.com/goblinlaunch/goblinbot/core/cmd"
	tg "github.com/goblinlaunch/goblinbot/core/telegram"
	"github.com/goblinlaunch/goblinbot/core/telegram/helpers"
	"github.com/goblinlaunch/goblinbot/core/telegram/router"
	"github.com/goblinlaunch/goblinbot/internal/deploy"
	"github.com/goblinlaunch/goblinbot/internal/draft"
	"github.com/goblinlaunch/goblinbot/internal/ipfs"
	"github.com/goblinlaunch/goblinbot/internal/token"
	"github.com/goblinlaunch/goblinbot/internal/wallet"
	"github.com/goblinlaunch/goblinbot/internal/walletlink"
	"github.com/goblinlaunch/goblinbot/internal/wizard"
)

// App wires the wizard, its collaborators, and the Telegram runtime.
type App struct {
	cfg       *Config
	db        *sqlx.DB
	registry  *tg.Registry
	messenger *Messenger
	machine   *wizard.Machine
	tokens    *token.Store
}

// Bootstrap initializes infrastructure and assembles the application.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}

	infra, err := bootstrap.Run(bootstrap.Options{
		Config:   &cfg.Core,
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}

	httpClient := tg.BuildHTTPClient()

	messenger := NewMessenger()
	tokens := token.NewStore(infra.DB)

	machine := wizard.NewMachine(
		wizard.Config{
			Limits: wizard.Limits{
				MinBuyInEth: cfg.Core.Chain.MinBuyInEth,
				MaxBuyInEth: cfg.Core.Chain.MaxBuyInEth,
			},
			ChainID:             cfg.Core.Chain.ChainID,
			GasReserveEth:       cfg.Core.Chain.GasReserveEth,
			BotUsername:         cfg.Core.Telegram.Username,
			WebAppURL:           cfg.Core.WalletLink.WebAppURL,
			GatewayURL:          cfg.Core.IPFS.GatewayURL,
			BalancePollInterval: cfg.Core.Wizard.BalancePollInterval,
			LinkPollInterval:    cfg.Core.Wizard.LinkPollInterval,
			LinkPollTimeout:     cfg.Core.Wizard.LinkPollTimeout,
		},
		wizard.NewCache(),
		wizard.Deps{
			Store:    draft.NewStore(infra.DB),
			Deployer: deploy.NewClient(cfg.Core.Chain.DeployerURL, cfg.Core.Chain.ChainID, nil),
			Balances: wallet.NewRPCOracle(cfg.Core.Chain.RPCURL, httpClient),
			Links:    walletlink.NewClient(cfg.Core.WalletLink.StatusURL, httpClient),
			Uploader: ipfs.NewClient(cfg.Core.IPFS.APIURL, cfg.Core.Telegram.Token, nil),
			Wallets:  wallet.NewGenerator(),
			Tokens:   tokens,
			Send:     messenger,
		},
	)

	app := &App{
		cfg:       cfg,
		db:        infra.DB,
		registry:  tg.NewRegistry(),
		messenger: messenger,
		machine:   machine,
		tokens:    tokens,
	}
	app.registerCommands()
	app.registerCallbacks()
	return app, nil
}

// TelegramRunOptions assembles the bot runtime configuration.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	adapter := newWizardAdapter(a.machine, a.registry)

	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID: a.cfg.Core.Telegram.AdminID,
	})
	routes = append(routes, router.TextRoutes(adapter, a.registry, router.TextOptions{
		UnknownText: a.handleUnknownText,
	})...)
	routes = append(routes, router.CallbackRoute(a.registry, router.CallbackOptions{}))

	return tg.RunOptions{
		Config:      &a.cfg.Core,
		Registry:    a.registry,
		Middlewares: tg.DefaultMiddlewares(&a.cfg.Core, nil),
		Routes:      routes,
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			a.messenger.SetBot(rt.Bot)
			return nil
		},
		OnStop: func(ctx context.Context, rt tg.Runtime) error {
			return a.db.Close()
		},
	}, nil
}

// handleUnknownText catches plain text from users with no live session. A
// draft left over from a previous process gets resumed; everyone else gets
// a nudge toward the wizard.
func (a *App) handleUnknownText(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	resumed, err := a.machine.TryResume(ctx, inboundFrom(c))
	if err != nil || resumed {
		return err
	}
	if chat := c.Chat(); chat != nil && chat.Type != tele.ChatPrivate {
		return nil
	}
	return helpers.SendText(c, "Not sure what you mean. Send /createtoken to launch a token or /help for commands.")
}
