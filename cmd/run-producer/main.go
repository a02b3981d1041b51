package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/daily-meme-quiz/internal/domain"
	"github.com/daily-meme-quiz/internal/scoring"
	"github.com/google/uuid"
)

var playerPrefixes = []string{
	"Doge", "Pepe", "Harold", "Pikachu", "Skeleton", "Pablo", "Drake", "Stonks", "Wojak", "Chad",
	"Karen", "Bonk", "Cheems", "Shiba", "Grumpy", "Nyan", "Trollface", "Rickroll", "Keanu", "Gigachad",
}

func getPlayerName(idx int) string {
	prefixIdx := idx % len(playerPrefixes)
	suffix := idx/len(playerPrefixes) + 1
	return fmt.Sprintf("%s%d", playerPrefixes[prefixIdx], suffix)
}

// syntheticRun plays a full run with random correctness and latency
func syntheticRun(playerIdx int, date string, questions int, practice bool) domain.RunResult {
	player := getPlayerName(playerIdx)
	run := domain.RunResult{
		RunID:          uuid.NewString(),
		Date:           date,
		PlayerID:       "synthetic:" + strings.ToLower(player),
		Username:       player,
		Classification: domain.ClassificationOfficial,
		CompletedAt:    time.Now().UTC(),
		Answers:        make([]domain.AnswerRecord, questions),
	}
	if practice {
		run.Classification = domain.ClassificationPractice
	}

	for i := range run.Answers {
		correct := rand.Intn(100) < 70
		elapsed := time.Duration(rand.Intn(12000)) * time.Millisecond
		points := scoring.ScoreForRound(correct, elapsed)
		run.Answers[i] = domain.AnswerRecord{
			QuestionNumber: i + 1,
			Correct:        correct,
			Points:         points,
			ElapsedMs:      elapsed.Milliseconds(),
		}
		run.Score += points
	}
	return run
}

func main() {
	// Command line flags
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "daily-runs", "Kafka topic")
	date := flag.String("date", domain.DateKey(time.Now()), "Puzzle date (YYYY-MM-DD)")
	totalPlayers := flag.Int("players", 200, "Number of distinct players")
	questions := flag.Int("questions", 7, "Questions per run")
	runsPerSecond := flag.Int("rate", 20, "Runs published per second")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	flag.Parse()

	if err := domain.ValidateDate(*date); err != nil {
		log.Fatalf("Invalid date %q: %v", *date, err)
	}
	if *totalPlayers <= 0 || *runsPerSecond <= 0 {
		log.Fatal("players and rate must be positive")
	}

	brokerList := strings.Split(*brokers, ",")

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("  Daily Quiz Run Producer")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  Brokers:          %s\n", *brokers)
	fmt.Printf("  Topic:            %s\n", *topic)
	fmt.Printf("  Date:             %s\n", *date)
	fmt.Printf("  Players:          %d\n", *totalPlayers)
	fmt.Printf("  Runs/sec:         %d\n", *runsPerSecond)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}

	var successCount, errorCount, runCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	shutdown := func(reason string) {
		fmt.Printf("\n\n%s, shutting down...\n", reason)
		producer.AsyncClose()
		wg.Wait()
		fmt.Printf("\nCompleted. Runs: %d, Sent: %d, Errors: %d\n",
			atomic.LoadInt64(&runCount),
			atomic.LoadInt64(&successCount),
			atomic.LoadInt64(&errorCount),
		)
	}

	// The first run per player is official; later ones are practice
	finished := make(map[int]bool, *totalPlayers)

	interval := time.Second / time.Duration(*runsPerSecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	var endTime time.Time
	if *duration > 0 {
		endTime = time.Now().Add(*duration)
	}

	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	for {
		select {
		case <-sigChan:
			shutdown("Interrupted")
			return

		case <-ticker.C:
			if *duration > 0 && time.Now().After(endTime) {
				shutdown("Duration reached")
				return
			}

			playerIdx := rand.Intn(*totalPlayers)
			run := syntheticRun(playerIdx, *date, *questions, finished[playerIdx])
			finished[playerIdx] = true

			data, err := json.Marshal(run)
			if err != nil {
				log.Printf("Failed to marshal run: %v", err)
				continue
			}

			producer.Input() <- &sarama.ProducerMessage{
				Topic: *topic,
				Key:   sarama.StringEncoder(run.PlayerID),
				Value: sarama.ByteEncoder(data),
			}
			atomic.AddInt64(&runCount, 1)

		case <-statsTicker.C:
			fmt.Printf("[%s] Runs: %d | Sent: %d | Errors: %d | Players finished: %d\n",
				time.Now().Format("15:04:05"),
				atomic.LoadInt64(&runCount),
				atomic.LoadInt64(&successCount),
				atomic.LoadInt64(&errorCount),
				len(finished),
			)
		}
	}
}
