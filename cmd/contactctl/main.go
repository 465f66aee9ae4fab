package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	if _, err := runCLI(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runCLI 执行命令并在返回前释放资源
// 命令出错时 cobra 不会执行 PostRun，所以释放放在这里
func runCLI(args []string, out, errOut io.Writer) (*cli, error) {
	root, app := newRootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)
	defer app.close()
	return app, root.Execute()
}
