package utils

//run redis
//docker run -p 6379:6379 -d redis

//firestore emulator
//gcloud emulators firestore start --host-port=localhost:8085

//swagger init
//swag init -g cmd/api/main.go --parseDependency --parseInternal --dir ./ --output ./cmd/api/docs
