package main

import "github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/cli"

func main() {
	cli.Execute()
}
