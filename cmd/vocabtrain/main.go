// Command vocabtrain trains a subword vocabulary, either BPE or Unigram,
// from a text corpus and writes the resulting model and vocabulary files
// to disk.
//
// Grounded on cmd/dataset_tokenizer/dataset_tokenizer.go's flag layout and
// log.Fatal-on-error driver style.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/shredword/trainer/internal/bpe"
	"github.com/shredword/trainer/internal/corpusio"
	"github.com/shredword/trainer/internal/modelio"
	"github.com/shredword/trainer/internal/unigram"
)

func main() {
	modelType := flag.String("model_type", "bpe", "vocabulary model: \"bpe\" or \"unigram\"")
	inputPath := flag.String("input", "", "path to a single corpus text file")
	corpusGlob := flag.String("corpus_glob", "", "glob pattern matching multiple corpus files, e.g. \"corpus/**/*.txt\"")
	outputModel := flag.String("output_model", "model.bin", "path to write the trained model file")
	outputVocab := flag.String("output_vocab", "vocab.txt", "path to write the trained vocabulary file")
	vocabSize := flag.Int("vocab_size", 0, "target vocabulary size (defaults depend on model_type)")
	characterCoverage := flag.Float64("character_coverage", bpe.DefaultCharacterCoverage, "fraction of distinct corpus bytes to keep (bpe only)")
	minPairFreq := flag.Uint64("min_pair_freq", bpe.DefaultMinPairFreq, "minimum pair frequency to merge (bpe only)")
	unkID := flag.Int("unk_id", -1, "byte id never merged, or -1 for none (bpe only)")
	numIterations := flag.Int("num_iterations", unigram.DefaultNumIterations, "outer EM iterations (unigram only)")
	seedSize := flag.Int("seed_size", unigram.DefaultSeedSize, "maximum number of multi-byte seed candidates (unigram only)")
	maxPieceLength := flag.Int("max_piece_length", unigram.DefaultMaxPieceLength, "longest candidate piece in bytes (unigram only)")
	sentenceSplit := flag.Bool("sentence_split", false, "re-segment each input line at sentence boundaries before training")
	flag.Parse()

	if *inputPath == "" && *corpusGlob == "" {
		flag.Usage()
		log.Fatal("must provide -input or -corpus_glob")
	}

	lines, err := loadCorpus(*inputPath, *corpusGlob, *sentenceSplit)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("loaded %d corpus lines", len(lines))

	switch *modelType {
	case "bpe":
		trainBPE(lines, *vocabSize, *characterCoverage, *minPairFreq, int32(*unkID), *outputModel, *outputVocab)
	case "unigram":
		trainUnigram(lines, *vocabSize, *numIterations, *seedSize, *maxPieceLength, *outputModel, *outputVocab)
	default:
		log.Fatalf("unrecognised model_type %q, must be \"bpe\" or \"unigram\"", *modelType)
	}
}

func loadCorpus(inputPath, corpusGlob string, sentenceSplit bool) ([]string, error) {
	var lines []string
	var err error
	if inputPath != "" {
		lines, err = corpusio.ReadLines(inputPath)
	} else {
		lines, err = corpusio.ReadCorpus(corpusGlob)
	}
	if err != nil {
		return nil, err
	}
	if sentenceSplit {
		lines, err = corpusio.SplitSentences(lines)
		if err != nil {
			return nil, err
		}
	}
	return lines, nil
}

func trainBPE(lines []string, vocabSize int, coverage float64, minPairFreq uint64, unkID int32, outputModel, outputVocab string) {
	if vocabSize == 0 {
		vocabSize = bpe.DefaultVocabSize
	}
	tr, err := bpe.NewTrainer(bpe.Config{
		TargetVocabSize:   vocabSize,
		CharacterCoverage: coverage,
		MinPairFreq:       minPairFreq,
		UnkID:             unkID,
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := tr.LoadCorpus(lines); err != nil {
		log.Fatal(err)
	}
	if err := tr.CountBigrams(); err != nil {
		log.Fatal(err)
	}
	size, err := tr.Train()
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("trained bpe vocabulary of %d tokens", size)

	if err := modelio.WriteMergeModel(outputModel, tr.Merges()); err != nil {
		log.Fatal(err)
	}
	freqs := tr.TokenFrequencies()
	if err := modelio.WriteBPEVocab(outputVocab, tr.Merges(), freqs, tr.TokenBytes); err != nil {
		log.Fatal(err)
	}
	logWrittenSizes(outputModel, outputVocab)
}

func trainUnigram(lines []string, vocabSize, numIterations, seedSize, maxPieceLength int, outputModel, outputVocab string) {
	if vocabSize == 0 {
		vocabSize = unigram.DefaultVocabSize
	}
	tr, err := unigram.NewTrainer(unigram.Config{
		TargetVocabSize: vocabSize,
		MaxPieceLength:  maxPieceLength,
		SeedSize:        seedSize,
		NumIterations:   numIterations,
	})
	if err != nil {
		log.Fatal(err)
	}
	if err := tr.LoadCorpus(lines); err != nil {
		log.Fatal(err)
	}
	size, err := tr.Train()
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("trained unigram vocabulary of %d tokens", size)

	if err := modelio.WriteUnigramHeader(outputModel, size); err != nil {
		log.Fatal(err)
	}
	if err := modelio.WriteUnigramVocab(outputVocab, tr.Vocabulary()); err != nil {
		log.Fatal(err)
	}
	logWrittenSizes(outputModel, outputVocab)
}

func logWrittenSizes(paths ...string) {
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil {
			log.Printf("wrote %s (%s)", p, humanize.Bytes(uint64(info.Size())))
		}
	}
}
