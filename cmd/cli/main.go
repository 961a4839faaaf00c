package main

func main() {
	if err := rootCmd.Execute(); err != nil {
		exitWithError("%s", err.Error())
	}
}
