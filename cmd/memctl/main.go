package main

func main() {
	loadEnv()
	execute()
}
