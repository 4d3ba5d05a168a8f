package main

import "github.com/zhouzirui/insight-dice/backend/internal/cli"

func main() {
	cli.Execute()
}
