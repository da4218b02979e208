// Package dashboard 交易面板终端界面
package dashboard

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/emabot/gopanel/internal/feed"
	"github.com/emabot/gopanel/internal/session"
	"github.com/emabot/gopanel/pkg/config"
	"github.com/emabot/gopanel/pkg/sdk/api"
	ws "github.com/emabot/gopanel/pkg/sdk/websocket"
)

var log = logrus.WithField("component", "dashboard")

// Run 启动面板并阻塞到用户退出
func Run(ctx context.Context, cfg config.ClientConfig) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("面板需要在终端里运行")
	}

	store, err := session.OpenTokenStore(cfg.DataDir)
	if err != nil {
		return errors.Wrap(err, "打开令牌存储失败")
	}
	defer store.Close()

	var sess *session.Manager
	apiClient := api.NewClient(cfg.BaseURL, func() string {
		if sess == nil {
			return ""
		}
		return sess.Token()
	})
	sess = session.NewManager(store, apiClient)

	streamURL := cfg.StreamURL()
	newFeed := func() *feed.Feed {
		return feed.New(apiClient, func(h ws.MessageHandler, onState ws.StateHandler) feed.Stream {
			return ws.NewClient(streamURL, h, onState)
		})
	}

	m := NewModel(ctx, apiClient, sess, newFeed)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	log.Infof("面板启动，后端 %s", cfg.BaseURL)
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "面板运行失败")
	}
	return nil
}
