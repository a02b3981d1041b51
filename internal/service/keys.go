package service

import "fmt"

// usedUnitsKey holds the uniqueIds consumed by past daily puzzles
const usedUnitsKey = "usedMemes"

// restoredLockValue marks a lock rebuilt from the archive rather than won by a run
const restoredLockValue = "archive"

func dailyKey(date string) string {
	return "daily:" + date
}

func sessionKey(date, playerID string) string {
	return fmt.Sprintf("session:%s:%s", date, playerID)
}

func roundKey(token string) string {
	return "round:" + token
}

func lockKey(date, playerID string) string {
	return fmt.Sprintf("lock:%s:%s", date, playerID)
}

func leaderboardKey(date string) string {
	return "leaderboard:" + date
}

func usernamesKey(date string) string {
	return fmt.Sprintf("leaderboard:%s:usernames", date)
}
