package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/liip/sheriff"
	"github.com/rs/zerolog/log"
	"github.com/travigo/mobility-monitor/pkg/monitor"
)

func upgradeWebsocket(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}

	return fiber.ErrUpgradeRequired
}

// streamSnapshots sends the current dashboard followed by every update until the client leaves
func (r *MobilityRoutes) streamSnapshots() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		updates, unsubscribe := r.Store.Subscribe()
		defer unsubscribe()

		log.Debug().Str("ip", conn.RemoteAddr().String()).Msg("Dashboard stream connected")

		closed := make(chan struct{})
		go func() {
			defer close(closed)

			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		if err := r.writeDashboard(conn, r.Store.Snapshot()); err != nil {
			return
		}

		for {
			select {
			case <-closed:
				log.Debug().Msg("Dashboard stream disconnected")
				return
			case snapshot, open := <-updates:
				if !open {
					return
				}

				if err := r.writeDashboard(conn, snapshot); err != nil {
					log.Debug().Err(err).Msg("Failed to write dashboard update")
					return
				}
			}
		}
	})
}

func (r *MobilityRoutes) writeDashboard(conn *websocket.Conn, snapshot monitor.Snapshot) error {
	reduced, err := sheriff.Marshal(&sheriff.Options{
		Groups: []string{"basic"},
	}, r.renderer().dashboard(snapshot))
	if err != nil {
		return err
	}

	return conn.WriteJSON(reduced)
}
