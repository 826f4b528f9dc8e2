package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/darkkaiser/torrent-bot/internal/config"
	"github.com/darkkaiser/torrent-bot/internal/jackett"
	"github.com/darkkaiser/torrent-bot/internal/jellyfin"
	"github.com/darkkaiser/torrent-bot/internal/service"
	"github.com/darkkaiser/torrent-bot/internal/service/api"
	"github.com/darkkaiser/torrent-bot/internal/service/bot"
	"github.com/darkkaiser/torrent-bot/internal/service/monitor"
	"github.com/darkkaiser/torrent-bot/internal/torrent"
	"github.com/darkkaiser/torrent-bot/internal/ytdl"
	applog "github.com/darkkaiser/torrent-bot/pkg/log"
)

// 빌드 정보 변수 (ldflags로 주입됨)
var (
	Version   = "dev"
	BuildDate = "unknown"
)

const banner = `
  _____                              _     ____          _
 |_   _|___   _ __  _ __  ___  _ __ | |_  | __ )   ___  | |_
   | | / _ \ | '__|| '__|/ _ \| '_ \| __| |  _ \  / _ \ | __|
   | || (_) || |   | |  |  __/| | | | |_  | |_) || (_) || |_
   |_| \___/ |_|   |_|   \___||_| |_|\__| |____/  \___/  \__|  v%s
--------------------------------------------------------------------------------
`

func main() {
	configFile := flag.String("config", config.DefaultFilename, "설정 파일 경로")
	flag.Parse()

	// 환경설정 정보를 읽어들인다.
	appConfig, err := config.LoadWithFile(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "환경설정 정보를 읽을 수 없습니다: %v\n", err)
		os.Exit(1)
	}

	// 로그를 초기화한다.
	logOpts := applog.NewProductionOptions(config.AppName)
	if appConfig.Debug {
		logOpts = applog.NewDevelopmentOptions(config.AppName)
	}
	logCloser, err := applog.Setup(logOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "로그를 초기화할 수 없습니다: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	fmt.Printf(banner, Version)

	log.Infof("빌드 정보 - 버전: %s, 빌드 날짜: %s", Version, BuildDate)
	log.Infof("Go 버전: %s, OS/Arch: %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)

	// 권장 설정에서 벗어난 항목을 경고로 알린다.
	for _, warning := range appConfig.VerifyRecommendations() {
		log.Warn(warning)
	}

	// 토렌트 백엔드 클라이언트를 생성하고 접속을 확인한다.
	torrentClient, err := torrent.NewClient(&appConfig.Torrent)
	if err != nil {
		log.Fatalf("토렌트 클라이언트 생성 실패: %v", err)
	}
	if err := torrentClient.Login(context.Background()); err != nil {
		// 서비스 시작 후 백엔드가 복구될 수 있으므로 접속 실패로 종료하지는 않는다.
		log.Warnf("토렌트 백엔드 접속 실패(폴링중에 재시도됩니다): %v", err)
	}

	// 선택 기능의 클라이언트들을 생성한다.
	var jackettClient *jackett.Client
	if appConfig.Jackett.Enabled() {
		jackettClient = jackett.NewClient(&appConfig.Jackett)
	}

	var jellyfinClient *jellyfin.Client
	if appConfig.Jellyfin.Enabled() {
		jellyfinClient = jellyfin.NewClient(&appConfig.Jellyfin)
		if err := jellyfinClient.Authenticate(context.Background()); err != nil {
			log.Warnf("Jellyfin 서버 인증 실패(요청시에 재시도됩니다): %v", err)
		}
	}

	var downloader *ytdl.Downloader
	if appConfig.Ytdl.Enabled() {
		downloader = ytdl.NewDownloader(&appConfig.Ytdl)
	}

	// 서비스를 생성하고 초기화한다.
	botService := bot.NewService(appConfig, torrentClient, jackettClient, jellyfinClient, downloader)
	monitorService := monitor.NewService(appConfig, torrentClient, botService)

	services := []service.Service{botService, monitorService}
	if appConfig.NotifyAPI.Enabled {
		services = append(services, api.NewService(appConfig, botService))
	}

	serviceStopCtx, cancel := context.WithCancel(context.Background())
	serviceStopWG := &sync.WaitGroup{}

	// 서비스를 시작한다.
	for _, s := range services {
		serviceStopWG.Add(1)
		if err := s.Start(serviceStopCtx, serviceStopWG); err != nil {
			log.Errorf("서비스 시작 실패: %v", err)
			cancel()
			serviceStopWG.Wait()
			log.Fatal("서비스 초기화 실패로 프로그램을 종료합니다")
		}
	}

	termC := make(chan os.Signal, 1)
	signal.Notify(termC, syscall.SIGINT, syscall.SIGTERM)

	<-termC

	log.Info("Shutdown signal received")
	cancel()
	serviceStopWG.Wait()
}
