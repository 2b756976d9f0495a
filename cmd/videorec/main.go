// Command videorec 是视频推荐服务的入口。
//
// 子命令：
//
//	videorec serve    [-config path]            启动 HTTP 推荐服务
//	videorec eval     [-config path] [-k 10]    离线评估（留一法）
//	videorec snapshot [-config path]            构建索引快照并写入 file / redis
//
// 配置按 默认值 → YAML 文件 → VIDEOREC_ 环境变量 的顺序叠加，见 config 包。
package main

import (
	"fmt"
	"os"

	_ "github.com/rushteam/videorec/config/builders"
)

// version 在构建时通过 -ldflags "-X main.version=..." 注入
var version = "dev"

func usage() {
	fmt.Fprintf(os.Stderr, `usage: videorec <command> [flags]

commands:
  serve      start the HTTP recommendation server
  eval       run leave-last-out offline evaluation
  snapshot   build the co-occurrence snapshot and persist it
  version    print version
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "serve":
		err = runServe(args)
	case "eval":
		err = runEval(args)
	case "snapshot":
		err = runSnapshot(args)
	case "version":
		fmt.Println(version)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "videorec: %v\n", err)
		os.Exit(1)
	}
}
