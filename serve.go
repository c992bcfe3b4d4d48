package main

import (
	"helo/internal/back"
	"helo/internal/bot"
	"helo/internal/config"
	"helo/internal/web"
	"os"
	"os/signal"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"
)

func serve(conf *config.Config) func(*back.Back) error {
	return func(b *back.Back) error {
		done := make(chan struct{})
		signaled := make(chan os.Signal, 1)
		signal.Notify(signaled, syscall.SIGINT, syscall.SIGTERM)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Run(&wg, done)
		}()

		server := web.NewServer(b, conf.WebAddr)
		wg.Add(1)
		go func() {
			defer wg.Done()
			server.Serve(&wg, done)
		}()

		if conf.DiscordToken != "" {
			bot, err := bot.New(b, conf)
			if err != nil {
				close(done)
				wg.Wait()
				return err
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				bot.Serve(&wg, done)
			}()
		} else {
			log.Warn("no Discord token configured, not starting the bot")
		}

		sig := <-signaled
		log.Infof("received signal %s", sig)
		close(done)
		wg.Wait()

		log.Info("shutdown complete")

		return nil
	}
}
