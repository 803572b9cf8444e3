package chrome

import (
	"fmt"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
)

type LauncherOption func(*launcher.Launcher)

// CreateLauncher 按选项构建 rod 启动器
func CreateLauncher(opts ...LauncherOption) *launcher.Launcher {
	l := launcher.New()
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func WithBin(bin string) LauncherOption {
	return func(l *launcher.Launcher) {
		if bin != "" {
			l.Bin(bin)
		}
	}
}

func WithUserDataDir(dir string) LauncherOption {
	return func(l *launcher.Launcher) {
		if dir != "" {
			l.UserDataDir(dir)
		}
	}
}

func WithHeadless(headless bool) LauncherOption {
	return func(l *launcher.Launcher) { l.Headless(headless) }
}

func WithDisableBlinkFeatures(features string) LauncherOption {
	return func(l *launcher.Launcher) {
		if features != "" {
			l.Set("disable-blink-features", features)
		}
	}
}

func WithIncognito(incognito bool) LauncherOption {
	return func(l *launcher.Launcher) {
		if incognito {
			l.Set("incognito")
		}
	}
}

func WithDisableDevShmUsage(disable bool) LauncherOption {
	return func(l *launcher.Launcher) {
		if disable {
			l.Set("disable-dev-shm-usage")
		}
	}
}

func WithNoSandbox(noSandbox bool) LauncherOption {
	return func(l *launcher.Launcher) { l.NoSandbox(noSandbox) }
}

func WithUserAgent(ua string) LauncherOption {
	return func(l *launcher.Launcher) {
		if ua == "" {
			ua = DefaultUserAgent
		}
		l.Set(flags.Flag("user-agent"), ua)
	}
}

func WithLeakless(leakless bool) LauncherOption {
	return func(l *launcher.Launcher) { l.Leakless(leakless) }
}

func WithWindowSize(width, height int) LauncherOption {
	return func(l *launcher.Launcher) {
		if width > 0 && height > 0 {
			l.Set("window-size", fmt.Sprintf("%d,%d", width, height))
		}
	}
}

// WithLang 固定 Accept-Language，避免站点按 IP 自动翻译
func WithLang(lang string) LauncherOption {
	return func(l *launcher.Launcher) {
		if lang != "" {
			l.Set("lang", lang)
		}
	}
}
