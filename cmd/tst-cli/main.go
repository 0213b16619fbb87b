package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/kumarlokesh/sysd/exercises/tst/internal/tst"
)

func main() {
	size := flag.Int("size", 1000, "Number of random keys to generate")
	maxLen := flag.Int("max-len", 16, "Maximum length of generated keys")
	alphabet := flag.String("alphabet", "abcdefghijklmnopqrstuvwxyz", "Bytes random keys are drawn from")
	file := flag.String("file", "", "Read keys from this file, one per line, instead of generating them")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	remove := flag.Bool("remove", false, "Remove every key in random order, validating the trie after each removal")
	walk := flag.Bool("walk", false, "Print every key in walk order")
	debug := flag.Bool("debug", false, "Log structural changes made by removals")
	flag.Parse()

	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	if *size <= 0 || *maxLen <= 0 || *alphabet == "" {
		logger.Fatal().Msg("size, max-len and alphabet must be non-empty")
	}

	rng := rand.New(rand.NewSource(*seed))
	var keys []string
	if *file != "" {
		var err error
		keys, err = readKeys(*file)
		if err != nil {
			logger.Fatal().Err(err).Str("file", *file).Msg("failed to read keys")
		}
	} else {
		keys = make([]string, *size)
		for i := range keys {
			keys[i] = randomKey(rng, *alphabet, *maxLen)
		}
	}

	trie := tst.New[int](tst.WithLogger(logger))

	fmt.Printf("Inserting %d keys...\n", len(keys))
	start := time.Now()
	var inserted []string
	for i, k := range keys {
		created, _, err := trie.Insert(k, i)
		if err != nil {
			logger.Fatal().Err(err).Int("line", i+1).Msg("insert failed")
		}
		if created {
			inserted = append(inserted, k)
		}
	}
	fmt.Printf("Inserted %d distinct keys in %v, size %d\n", len(inserted), time.Since(start), trie.Size())

	if err := trie.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("trie invalid after inserts")
	}

	start = time.Now()
	for _, k := range inserted {
		if !trie.Contains(k) {
			logger.Fatal().Str("key", k).Msg("inserted key not found")
		}
	}
	fmt.Printf("Found all keys in %v\n", time.Since(start))

	if *walk {
		trie.Walk(func(t *tst.Trie[int], pos tst.Position, key string) bool {
			fmt.Printf("%q\t%d\n", key, t.Value(pos))
			return true
		})
	}

	if *remove {
		rng.Shuffle(len(inserted), func(i, j int) { inserted[i], inserted[j] = inserted[j], inserted[i] })
		start = time.Now()
		for i, k := range inserted {
			if _, err := trie.Remove(k); err != nil {
				logger.Fatal().Err(err).Str("key", k).Msg("remove failed")
			}
			if err := trie.Validate(); err != nil {
				logger.Fatal().Err(err).Str("key", k).Msg("trie invalid after remove")
			}
			if want := len(inserted) - i - 1; trie.Size() != want {
				logger.Fatal().Int("size", trie.Size()).Int("want", want).Msg("size mismatch")
			}
		}
		fmt.Printf("Removed %d keys in %v, size %d\n", len(inserted), time.Since(start), trie.Size())
	}

	disposed := 0
	trie.Destroy(func(int) { disposed++ })
	fmt.Printf("Destroyed trie, disposed %d values\n", disposed)
}

func randomKey(rng *rand.Rand, alphabet string, maxLen int) string {
	b := make([]byte, rng.Intn(maxLen)+1)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b)
}

func readKeys(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var keys []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			keys = append(keys, line)
		}
	}
	return keys, scanner.Err()
}
