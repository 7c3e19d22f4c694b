package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/xdg-go/etf"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: etfperf <json file>")
	}
	inputFile := os.Args[1]
	jsonData, err := os.ReadFile(inputFile)
	if err != nil {
		log.Fatal(err)
	}
	msgs, size := loadMessages(jsonData)
	log.Printf("%d messages, %d bytes", len(msgs), size)

	benchDecode("stateless", msgs, size, etf.NewDecoder(false))
	benchDecode("reuse", msgs, size, etf.NewDecoder(true))
	keyed := etf.NewDecoder(true)
	keyed.KeyCache(true)
	benchDecode("reuse+keycache", msgs, size, keyed)
	benchEncode(msgs, size)
	benchFromJSON(jsonData)
	benchNaive(jsonData)
}

// loadMessages converts each JSON object of the input to a binary message.
func loadMessages(input []byte) ([][]byte, int) {
	jd, err := etf.NewJSONDecoder(bufio.NewReader(bytes.NewReader(input)))
	if err != nil {
		log.Fatal(err)
	}
	var msgs [][]byte
	var size int
	for {
		doc, err := jd.Decode()
		if err != nil {
			if err == io.EOF {
				break
			}
			log.Fatal(err)
		}
		msg, err := etf.Marshal(doc)
		if err != nil {
			log.Fatal(err)
		}
		msgs = append(msgs, msg)
		size += len(msg)
	}
	return msgs, size
}

func benchDecode(label string, msgs [][]byte, size int, dec *etf.Decoder) {
	start := time.Now()
	for _, msg := range msgs {
		_, err := dec.Decode(msg)
		if err != nil {
			log.Fatal(err)
		}
	}
	elapsed := time.Since(start)
	reportResult("decode "+label, size, elapsed)
}

func benchEncode(msgs [][]byte, size int) {
	docs := make([]etf.Document, len(msgs))
	for i, msg := range msgs {
		doc, err := etf.Unmarshal(msg)
		if err != nil {
			log.Fatal(err)
		}
		docs[i] = doc
	}

	enc := etf.NewEncoder(true)
	buf := make([]byte, 0, 256)
	start := time.Now()
	for _, doc := range docs {
		var err error
		buf, err = enc.Encode(buf[:0], doc)
		if err != nil {
			log.Fatal(err)
		}
	}
	elapsed := time.Since(start)
	reportResult("encode reuse", size, elapsed)
}

func benchFromJSON(input []byte) {
	tc := etf.NewTranscoder()
	jd, err := etf.NewJSONDecoder(bufio.NewReader(bytes.NewReader(input)))
	if err != nil {
		log.Fatal(err)
	}
	enc := etf.NewEncoder(true)
	buf := make([]byte, 0, 256)

	start := time.Now()
	for {
		doc, err := jd.Decode()
		if err != nil {
			if err == io.EOF {
				break
			}
			log.Fatal(err)
		}
		buf, err = enc.Encode(buf[:0], doc)
		if err != nil {
			log.Fatal(err)
		}
		if _, err = tc.ToJSON(nil, buf); err != nil {
			log.Fatal(err)
		}
	}
	elapsed := time.Since(start)
	reportResult("json->etf->json", len(input), elapsed)
}

func benchNaive(input []byte) {
	jsonReader := bytes.NewReader(input)
	dec := json.NewDecoder(jsonReader)

	start := time.Now()
	for dec.More() {
		var m map[string]interface{}
		err := dec.Decode(&m)
		if err != nil {
			log.Fatal(err)
		}
		doc, err := etf.FromInterface(m)
		if err != nil {
			log.Fatal(err)
		}
		buf, err := etf.Marshal(doc)
		if err != nil {
			log.Fatal(err)
		}
		_ = buf
	}
	elapsed := time.Since(start)
	reportResult("naive json->etf", len(input), elapsed)
}

func reportResult(label string, size int, elapsed time.Duration) {
	throughput := float64(size) / float64(elapsed.Microseconds())
	fmt.Printf("%22s %.2f MB/s\n", label, throughput)
}
