package main

import (
	"log"
	"os"
	osalias "os"
)

func helper() {
	os.Exit(2)
	log.Fatal("allowed outside main")
}

func main() {
	defer helper()

	if len(os.Args) > 3 {
		osalias.Exit(3) // want "avoid using os.Exit in main.main"
	}

	func() {
		log.Fatalf("%d", 1) // want "avoid using log.Fatalf in main.main"
	}()

	log.Println("fine")
	os.Exit(1) // want "avoid using os.Exit in main.main"
}
