package main

import "github.com/ytget/ytgram/cmd"

func main() {
	cmd.Execute()
}
