package installer

import (
	"os"
	"path/filepath"
	"runtime"
)

const userSkinsDirName = "UserSkins"

// FindUserSkinsDir returns the UserSkins dir of the first found game installation.
func FindUserSkinsDir() (string, bool) {
	home, _ := os.UserHomeDir()
	return findUserSkinsDir(gameDirs(runtime.GOOS, home))
}

// gameDirs returns known install locations of the game.
func gameDirs(goos, home string) []string {
	var dirs []string
	switch goos {
	case "windows":
		dirs = []string{
			`C:\Program Files (x86)\Steam\steamapps\common\War Thunder`,
			`C:\Program Files\WarThunder`,
		}
	case "darwin":
		dirs = []string{"/Users/Shared/War Thunder"}
		if home != "" {
			dirs = append(dirs, filepath.Join(home, "Library", "Application Support", "Steam", "steamapps", "common", "War Thunder"))
		}
	case "linux":
		if home != "" {
			dirs = append(dirs,
				filepath.Join(home, ".local", "share", "Steam", "steamapps", "common", "War Thunder"),
				filepath.Join(home, "WarThunder"),
			)
		}
	}
	return dirs
}

func findUserSkinsDir(gameDirs []string) (string, bool) {
	for _, dir := range gameDirs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		return filepath.Join(dir, userSkinsDirName), true
	}
	return "", false
}
